package financing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPenaltyRatePercent is the early-settlement compensation charged on
// the remaining principal.
var DefaultPenaltyRatePercent = decimal.NewFromInt(1)

var hundred = decimal.NewFromInt(100)

// PayoffQuote is an advisory early-settlement estimate, never a binding figure.
// Remaining interest is projected linearly instead of being re-amortized, so the
// bank's final amount can differ.
type PayoffQuote struct {
	PrincipalRemaining decimal.Decimal `json:"principal_remaining"`
	RemainingMonths    int             `json:"remaining_months"`
	InterestRemaining  decimal.Decimal `json:"interest_remaining"`
	Penalty            decimal.Decimal `json:"penalty"`
	InterestSaved      decimal.Decimal `json:"interest_saved"`
	TotalPayable       decimal.Decimal `json:"total_payable"`
}

type payoffParams struct {
	penaltyRatePercent decimal.Decimal
}

type PayoffOption func(*payoffParams)

// WithPenaltyRate overrides the 1% default compensation rate
func WithPenaltyRate(percent decimal.Decimal) PayoffOption {
	return func(p *payoffParams) { p.penaltyRatePercent = percent }
}

// ComputeEarlyPayoff quotes clearing principalRemaining now instead of over
// remainingMonths. It is pure and rejects non-positive inputs.
func ComputeEarlyPayoff(
	principalRemaining, annualRatePercent decimal.Decimal,
	remainingMonths int,
	opts ...PayoffOption,
) (PayoffQuote, error) {
	params := payoffParams{penaltyRatePercent: DefaultPenaltyRatePercent}
	for _, opt := range opts {
		opt(&params)
	}

	switch {
	case !principalRemaining.IsPositive():
		return PayoffQuote{}, fmt.Errorf("%w: principal %s", ErrInvalidPayoffInput, principalRemaining)
	case !annualRatePercent.IsPositive():
		return PayoffQuote{}, fmt.Errorf("%w: rate %s", ErrInvalidPayoffInput, annualRatePercent)
	case remainingMonths <= 0:
		return PayoffQuote{}, fmt.Errorf("%w: %d remaining months", ErrInvalidPayoffInput, remainingMonths)
	case params.penaltyRatePercent.IsNegative():
		return PayoffQuote{}, fmt.Errorf("%w: penalty rate %s", ErrInvalidPayoffInput, params.penaltyRatePercent)
	}

	interestRemaining := principalRemaining.
		Mul(annualRatePercent).
		Mul(decimal.NewFromInt(int64(remainingMonths))).
		Div(monthlyRateDivisor).
		Round(2)
	penalty := principalRemaining.Mul(params.penaltyRatePercent).Div(hundred).Round(2)

	return PayoffQuote{
		PrincipalRemaining: principalRemaining,
		RemainingMonths:    remainingMonths,
		InterestRemaining:  interestRemaining,
		Penalty:            penalty,
		InterestSaved:      decimal.Max(decimal.Zero, interestRemaining.Sub(penalty)),
		TotalPayable:       principalRemaining.Add(penalty),
	}, nil
}
