package command

import (
	"github.com/example/agri-workflow/internal/domain/order"
	"github.com/shopspring/decimal"
)

// Buyer Commands
type PlaceOrder struct {
	Items    []order.OrderItem   `json:"items"`
	Shipping *order.ShippingInfo `json:"shipping,omitempty"`
}

type ConfirmPayment struct {
	OrderID string `json:"order_id"`
}

type CancelOrder struct {
	OrderID string `json:"order_id"`
}

type ConfirmReceipt struct {
	OrderID string `json:"order_id"`
}

type RequestRefund struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type ResubmitRefund struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// Seller / Platform Commands
type PrepareShipment struct {
	OrderID string `json:"order_id"`
}

type ShipOrder struct {
	OrderID string `json:"order_id"`
}

type DecideRefund struct {
	OrderID  string             `json:"order_id"`
	Actor    order.Actor        `json:"actor"`
	Decision order.RefundStatus `json:"decision"`
	Note     string             `json:"note,omitempty"`
}

// Farmer Commands
type ApplyFinancing struct {
	FarmerID   string          `json:"farmer_id"`
	Amount     decimal.Decimal `json:"amount"`
	TermMonths int             `json:"term_months"`
	Purpose    string          `json:"purpose"`
}

type SignContract struct {
	FinancingID string `json:"financing_id"`
}

type PayInstallment struct {
	FinancingID   string `json:"financing_id"`
	InstallmentID string `json:"installment_id"`
}

// Bank Commands
type StartReview struct {
	FinancingID string `json:"financing_id"`
}

// ApproveFinancing approves an application under review. A non-nil rate is
// quoted before approval.
type ApproveFinancing struct {
	FinancingID       string           `json:"financing_id"`
	AnnualRatePercent *decimal.Decimal `json:"annual_rate_percent,omitempty"`
	Note              string           `json:"note,omitempty"`
}

type RejectFinancing struct {
	FinancingID string `json:"financing_id"`
	Note        string `json:"note"`
}

type DisburseFinancing struct {
	FinancingID string `json:"financing_id"`
	Note        string `json:"note,omitempty"`
}
