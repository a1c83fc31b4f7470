package financing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// percent-per-year to fraction-per-month
var monthlyRateDivisor = decimal.NewFromInt(1200)

// Installment is one period of a repayment schedule. Paid never reverts.
type Installment struct {
	ID        string          `json:"id"`
	Sequence  int             `json:"sequence"`
	DueDate   time.Time       `json:"due_date"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Paid      bool            `json:"paid"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

// Amount returns principal plus interest due for the period
func (i Installment) Amount() decimal.Decimal {
	return i.Principal.Add(i.Interest)
}

// InstallmentStatus is derived from Paid and the due date, never stored
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// IsOverdue reports whether the installment is unpaid and asOf falls on a
// calendar day after its due day. The due day itself is not overdue.
func (i Installment) IsOverdue(asOf time.Time) bool {
	return !i.Paid && startOfDay(asOf.In(i.DueDate.Location())).After(startOfDay(i.DueDate))
}

// DaysOverdue counts whole calendar days past the due day; 0 when not overdue
func (i Installment) DaysOverdue(asOf time.Time) int {
	if !i.IsOverdue(asOf) {
		return 0
	}
	days := startOfDay(asOf.In(i.DueDate.Location())).Sub(startOfDay(i.DueDate)).Hours() / 24
	return int(math.Round(days))
}

func (i Installment) StatusAt(asOf time.Time) InstallmentStatus {
	switch {
	case i.Paid:
		return InstallmentStatusPaid
	case i.IsOverdue(asOf):
		return InstallmentStatusOverdue
	}
	return InstallmentStatusPending
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BuildSchedule lays out an equal-principal schedule. Each principal is
// amount/termMonths truncated to cents, the last installment absorbs the
// remainder so principals sum exactly to amount. Interest is charged on the
// balance outstanding at the start of each period.
func BuildSchedule(
	amount, annualRatePercent decimal.Decimal,
	termMonths int,
	start time.Time,
	installmentID func(seq int) string,
) ([]Installment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if termMonths < 1 {
		return nil, ErrInvalidTerm
	}
	if annualRatePercent.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRate, annualRatePercent)
	}

	base := amount.Div(decimal.NewFromInt(int64(termMonths))).Truncate(2)
	outstanding := amount
	schedule := make([]Installment, 0, termMonths)

	for i := 0; i < termMonths; i++ {
		principal := base
		if i == termMonths-1 {
			principal = outstanding
		}
		seq := i + 1
		schedule = append(schedule, Installment{
			ID:        installmentID(seq),
			Sequence:  seq,
			DueDate:   addMonths(start, seq),
			Principal: principal,
			Interest:  outstanding.Mul(annualRatePercent).Div(monthlyRateDivisor).Round(2),
		})
		outstanding = outstanding.Sub(principal)
	}
	return schedule, nil
}

// addMonths moves t forward n calendar months, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
