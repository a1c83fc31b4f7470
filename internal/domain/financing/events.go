package financing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventFinancingApplied       = "FinancingApplied"
	EventFinancingStatusChanged = "FinancingStatusChanged"
	EventFinancingDisbursed     = "FinancingDisbursed"
	EventFinancingRateSet       = "FinancingRateSet"
	EventInstallmentPaid        = "InstallmentPaid"
)

// TimelineItem is one immutable entry of a financing's audit trail
type TimelineItem struct {
	Actor  Actor     `json:"actor"`
	Action string    `json:"action"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

type FinancingApplied struct {
	FinancingID       string          `json:"financing_id"`
	FarmerID          string          `json:"farmer_id"`
	Amount            decimal.Decimal `json:"amount"`
	TermMonths        int             `json:"term_months"`
	Purpose           string          `json:"purpose"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	AppliedAt         time.Time       `json:"applied_at"`
}

type FinancingStatusChanged struct {
	FinancingID string    `json:"financing_id"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	Actor       Actor     `json:"actor"`
	Note        string    `json:"note,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// FinancingDisbursed carries the repayment schedule generated at disbursement
type FinancingDisbursed struct {
	FinancingID string        `json:"financing_id"`
	Actor       Actor         `json:"actor"`
	Note        string        `json:"note,omitempty"`
	Schedule    []Installment `json:"schedule"`
	DisbursedAt time.Time     `json:"disbursed_at"`
}

type FinancingRateSet struct {
	FinancingID       string          `json:"financing_id"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	SetAt             time.Time       `json:"set_at"`
}

type InstallmentPaid struct {
	FinancingID   string    `json:"financing_id"`
	InstallmentID string    `json:"installment_id"`
	Sequence      int       `json:"sequence"`
	PaidAt        time.Time `json:"paid_at"`
}
