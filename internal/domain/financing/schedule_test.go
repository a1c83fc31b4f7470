package financing

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqID(seq int) string { return fmt.Sprintf("inst_%d", seq) }

func TestBuildSchedule_EqualPrincipalWithRemainderOnLast(t *testing.T) {
	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	schedule, err := BuildSchedule(decimal.NewFromInt(10000), decimal.RequireFromString("4.35"), 3, start, seqID)

	require.NoError(t, err)
	require.Len(t, schedule, 3)

	wantPrincipal := []string{"3333.33", "3333.33", "3333.34"}
	wantInterest := []string{"36.25", "24.17", "12.08"}
	wantDue := []time.Time{
		time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC),
	}
	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.Sequence)
		assert.Equal(t, seqID(i+1), inst.ID)
		assert.True(t, inst.Principal.Equal(decimal.RequireFromString(wantPrincipal[i])), "principal %d = %s", i+1, inst.Principal)
		assert.True(t, inst.Interest.Equal(decimal.RequireFromString(wantInterest[i])), "interest %d = %s", i+1, inst.Interest)
		assert.Equal(t, wantDue[i], inst.DueDate)
		assert.False(t, inst.Paid)
		assert.Nil(t, inst.PaidAt)
	}
	assert.True(t, schedule[0].Amount().Equal(decimal.RequireFromString("3369.58")))
}

func TestBuildSchedule_ZeroRateChargesNoInterest(t *testing.T) {
	schedule, err := BuildSchedule(decimal.NewFromInt(1200), decimal.Zero, 12, time.Now(), seqID)

	require.NoError(t, err)
	for _, inst := range schedule {
		assert.True(t, inst.Interest.IsZero())
		assert.True(t, inst.Principal.Equal(decimal.NewFromInt(100)))
	}
}

func TestBuildSchedule_SingleMonth(t *testing.T) {
	schedule, err := BuildSchedule(decimal.RequireFromString("999.99"), decimal.NewFromInt(12), 1, time.Now(), seqID)

	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.True(t, schedule[0].Principal.Equal(decimal.RequireFromString("999.99")))
	assert.True(t, schedule[0].Interest.Equal(decimal.RequireFromString("10")))
}

func TestBuildSchedule_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		amount  decimal.Decimal
		rate    decimal.Decimal
		term    int
		wantErr error
	}{
		{"zero amount", decimal.Zero, decimal.NewFromInt(5), 12, ErrInvalidAmount},
		{"negative amount", decimal.NewFromInt(-1), decimal.NewFromInt(5), 12, ErrInvalidAmount},
		{"zero term", decimal.NewFromInt(100), decimal.NewFromInt(5), 0, ErrInvalidTerm},
		{"negative rate", decimal.NewFromInt(100), decimal.NewFromInt(-1), 12, ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := BuildSchedule(tt.amount, tt.rate, tt.term, time.Now(), seqID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, schedule)
		})
	}
}

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	leapStart := time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), addMonths(leapStart, 1))

	yearEnd := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), addMonths(yearEnd, 1))
}

func TestBuildSchedule_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	start := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	properties.Property("principals sum exactly to the amount", prop.ForAll(
		func(cents int64, term int, rateBasisPoints int64) bool {
			amount := decimal.New(cents, -2)
			rate := decimal.New(rateBasisPoints, -2)
			schedule, err := BuildSchedule(amount, rate, term, start, seqID)
			if err != nil || len(schedule) != term {
				return false
			}
			sum := decimal.Zero
			for _, inst := range schedule {
				sum = sum.Add(inst.Principal)
			}
			return sum.Equal(amount)
		},
		gen.Int64Range(1, 100_000_000),
		gen.IntRange(1, 360),
		gen.Int64Range(0, 3000),
	))

	properties.Property("due dates strictly increase", prop.ForAll(
		func(term int) bool {
			schedule, err := BuildSchedule(decimal.NewFromInt(100000), decimal.NewFromInt(5), term, start, seqID)
			if err != nil {
				return false
			}
			prev := start
			for _, inst := range schedule {
				if !inst.DueDate.After(prev) {
					return false
				}
				prev = inst.DueDate
			}
			return true
		},
		gen.IntRange(1, 120),
	))

	properties.TestingRun(t)
}

func TestInstallment_StatusAroundDueDate(t *testing.T) {
	due := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)
	inst := Installment{ID: "inst_1", Sequence: 1, DueDate: due, Principal: dec("100"), Interest: dec("1")}

	tests := []struct {
		name    string
		asOf    time.Time
		overdue bool
		days    int
		status  InstallmentStatus
	}{
		{"day before", due.AddDate(0, 0, -1), false, 0, InstallmentStatusPending},
		{"due day before the hour", time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), false, 0, InstallmentStatusPending},
		{"due day after the hour", time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), false, 0, InstallmentStatusPending},
		{"day after", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), true, 1, InstallmentStatusOverdue},
		{"ten days after", due.AddDate(0, 0, 10), true, 10, InstallmentStatusOverdue},
		{"next day elsewhere is still the due day here", time.Date(2026, 4, 1, 1, 0, 0, 0, time.FixedZone("UTC+9", 9*3600)), false, 0, InstallmentStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overdue, inst.IsOverdue(tt.asOf))
			assert.Equal(t, tt.days, inst.DaysOverdue(tt.asOf))
			assert.Equal(t, tt.status, inst.StatusAt(tt.asOf))
		})
	}
}

func TestInstallment_PaidIsNeverOverdue(t *testing.T) {
	due := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)
	paidAt := due.AddDate(0, 0, 5)
	inst := Installment{DueDate: due, Paid: true, PaidAt: &paidAt}

	late := due.AddDate(0, 2, 0)
	assert.False(t, inst.IsOverdue(late))
	assert.Zero(t, inst.DaysOverdue(late))
	assert.Equal(t, InstallmentStatusPaid, inst.StatusAt(late))
}
