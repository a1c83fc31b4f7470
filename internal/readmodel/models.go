package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collection names in the read store
const (
	CollectionOrders          = "orders"
	CollectionFinancings      = "financings"
	CollectionFarmerSummaries = "farmer_summaries"
)

// OrderReadModel is the buyer/admin order list row
type OrderReadModel struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ItemCount      int             `json:"item_count"`
	RefundStatus   string          `json:"refund_status,omitempty"`
	RefundAttempts int             `json:"refund_attempts,omitempty"`
	Recipient      string          `json:"recipient,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// FinancingReadModel is the bank/farmer financing list row
type FinancingReadModel struct {
	ID                   string          `json:"id"`
	FarmerID             string          `json:"farmer_id"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	AnnualRatePercent    decimal.Decimal `json:"annual_rate_percent"`
	TermMonths           int             `json:"term_months"`
	PaidInstallments     int             `json:"paid_installments"`
	TotalInstallments    int             `json:"total_installments"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	NextDueDate          *time.Time      `json:"next_due_date,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Version              int             `json:"version"`
}

// FarmerSummaryReadModel aggregates one farmer's financing activity
type FarmerSummaryReadModel struct {
	FarmerID     string          `json:"farmer_id"`
	Applications int             `json:"applications"`
	Rejected     int             `json:"rejected"`
	Settled      int             `json:"settled"`
	Requested    decimal.Decimal `json:"requested"`
	Disbursed    decimal.Decimal `json:"disbursed"`
	Repaid       decimal.Decimal `json:"repaid"`
}

// Active counts financings neither rejected nor settled
func (s *FarmerSummaryReadModel) Active() int {
	return s.Applications - s.Rejected - s.Settled
}
