package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated           = "OrderCreated"
	EventOrderStatusChanged     = "OrderStatusChanged"
	EventOrderCancelled         = "OrderCancelled"
	EventOrderShippingUpdated   = "OrderShippingUpdated"
	EventRefundRequested        = "RefundRequested"
	EventRefundDecisionRecorded = "RefundDecisionRecorded"
	EventRefundResubmitted      = "RefundResubmitted"
)

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// Subtotal returns price x quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingInfo struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// RefundHistoryItem is one immutable entry of an order's refund audit trail
type RefundHistoryItem struct {
	Actor  Actor     `json:"actor"`
	Action string    `json:"action"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

type OrderCreated struct {
	OrderID     string          `json:"order_id"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type OrderShippingUpdated struct {
	OrderID   string       `json:"order_id"`
	Shipping  ShippingInfo `json:"shipping"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type RefundRequested struct {
	OrderID     string    `json:"order_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type RefundDecisionRecorded struct {
	OrderID   string       `json:"order_id"`
	Actor     Actor        `json:"actor"`
	Decision  RefundStatus `json:"decision"`
	Action    string       `json:"action"`
	Note      string       `json:"note,omitempty"`
	DecidedAt time.Time    `json:"decided_at"`
}

type RefundResubmitted struct {
	OrderID       string    `json:"order_id"`
	Reason        string    `json:"reason"`
	Attempt       int       `json:"attempt"`
	ResubmittedAt time.Time `json:"resubmitted_at"`
}
