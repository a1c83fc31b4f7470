package financing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/agri-workflow/internal/domain/aggregate"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateType = "Financing"

// DefaultAnnualRatePercent applies when the ledger is not configured otherwise
var DefaultAnnualRatePercent = decimal.RequireFromString("4.35")

var (
	ErrFinancingNotFound      = fmt.Errorf("financing %w", aggregate.ErrNotFound)
	ErrInstallmentNotFound    = fmt.Errorf("installment %w", aggregate.ErrNotFound)
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be positive", aggregate.ErrInvalidInput)
	ErrInvalidTerm            = fmt.Errorf("%w: term must be at least one month", aggregate.ErrInvalidInput)
	ErrInvalidRate            = fmt.Errorf("%w: annual rate must not be negative", aggregate.ErrInvalidInput)
	ErrInvalidActor           = fmt.Errorf("%w: unknown timeline actor", aggregate.ErrInvalidInput)
	ErrUnknownStatus          = fmt.Errorf("%w: unknown financing status", aggregate.ErrInvalidInput)
	ErrInvalidPayoffInput     = fmt.Errorf("%w: early payoff inputs must be positive", aggregate.ErrInvalidInput)
	ErrInvalidTransition      = fmt.Errorf("%w: invalid financing status transition", aggregate.ErrIllegalTransition)
	ErrInstallmentAlreadyPaid = fmt.Errorf("%w: installment is already paid", aggregate.ErrIllegalTransition)
	ErrScheduleExists         = fmt.Errorf("%w: repayment schedule already generated", aggregate.ErrIllegalTransition)
	ErrOutstandingBalance     = fmt.Errorf("%w: unpaid installments remain", aggregate.ErrIllegalTransition)
	ErrRateLocked             = fmt.Errorf("%w: rate can only change before signing", aggregate.ErrIllegalTransition)
)

// Financing is one farmer funding request
type Financing struct {
	ID                string          `json:"id"`
	FarmerID          string          `json:"farmer_id"`
	Amount            decimal.Decimal `json:"amount"`
	TermMonths        int             `json:"term_months"`
	Purpose           string          `json:"purpose"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DisbursedAt       *time.Time      `json:"disbursed_at,omitempty"`
	Timeline          []TimelineItem  `json:"timeline"`
	RepaymentSchedule []Installment   `json:"repayment_schedule"`
	Version           int             `json:"version"`
}

// Aggregate interface implementation
func (f *Financing) GetID() string   { return f.ID }
func (f *Financing) GetVersion() int { return f.Version }

func (f *Financing) clone() *Financing {
	c := *f
	c.Timeline = slices.Clone(f.Timeline)
	c.RepaymentSchedule = slices.Clone(f.RepaymentSchedule)
	for i, inst := range c.RepaymentSchedule {
		if inst.PaidAt != nil {
			at := *inst.PaidAt
			c.RepaymentSchedule[i].PaidAt = &at
		}
	}
	if f.DisbursedAt != nil {
		at := *f.DisbursedAt
		c.DisbursedAt = &at
	}
	return &c
}

// Outstanding returns the unpaid principal and the number of unpaid installments
func (f *Financing) Outstanding() (decimal.Decimal, int) {
	principal := decimal.Zero
	unpaid := 0
	for _, inst := range f.RepaymentSchedule {
		if !inst.Paid {
			principal = principal.Add(inst.Principal)
			unpaid++
		}
	}
	return principal, unpaid
}

// IsFullyRepaid reports whether a schedule exists and every installment is paid
func (f *Financing) IsFullyRepaid() bool {
	if len(f.RepaymentSchedule) == 0 {
		return false
	}
	_, unpaid := f.Outstanding()
	return unpaid == 0
}

// OverdueInstallments returns the unpaid installments past their due day at
// asOf, in schedule order
func (f *Financing) OverdueInstallments(asOf time.Time) []Installment {
	var overdue []Installment
	for _, inst := range f.RepaymentSchedule {
		if inst.IsOverdue(asOf) {
			overdue = append(overdue, inst)
		}
	}
	return overdue
}

func (f *Financing) paidCount() int {
	_, unpaid := f.Outstanding()
	return len(f.RepaymentSchedule) - unpaid
}

// ApplyEvent applies a single event to the financing state (implements aggregate.Aggregate)
func (f *Financing) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventFinancingApplied:
		data, err := aggregate.Decode[FinancingApplied](event)
		if err != nil {
			return err
		}
		f.ID = data.FinancingID
		f.FarmerID = data.FarmerID
		f.Amount = data.Amount
		f.TermMonths = data.TermMonths
		f.Purpose = data.Purpose
		f.AnnualRatePercent = data.AnnualRatePercent
		f.Status = StatusApplied
		f.CreatedAt = data.AppliedAt
		f.UpdatedAt = data.AppliedAt
		f.Timeline = append(f.Timeline, TimelineItem{
			Actor:  ActorFarmer,
			Action: "financing application submitted",
			Note:   data.Purpose,
			At:     data.AppliedAt,
		})
	case EventFinancingStatusChanged:
		data, err := aggregate.Decode[FinancingStatusChanged](event)
		if err != nil {
			return err
		}
		f.Status = data.To
		f.UpdatedAt = data.ChangedAt
		f.Timeline = append(f.Timeline, TimelineItem{
			Actor:  data.Actor,
			Action: statusActions[data.To],
			Note:   data.Note,
			At:     data.ChangedAt,
		})
	case EventFinancingDisbursed:
		data, err := aggregate.Decode[FinancingDisbursed](event)
		if err != nil {
			return err
		}
		at := data.DisbursedAt
		f.Status = StatusDisbursed
		f.DisbursedAt = &at
		f.RepaymentSchedule = data.Schedule
		f.UpdatedAt = data.DisbursedAt
		f.Timeline = append(f.Timeline, TimelineItem{
			Actor:  data.Actor,
			Action: statusActions[StatusDisbursed],
			Note:   data.Note,
			At:     data.DisbursedAt,
		})
	case EventFinancingRateSet:
		data, err := aggregate.Decode[FinancingRateSet](event)
		if err != nil {
			return err
		}
		f.AnnualRatePercent = data.AnnualRatePercent
		f.UpdatedAt = data.SetAt
		f.Timeline = append(f.Timeline, TimelineItem{
			Actor:  ActorBank,
			Action: "annual rate quoted",
			Note:   data.AnnualRatePercent.String() + "%",
			At:     data.SetAt,
		})
	case EventInstallmentPaid:
		data, err := aggregate.Decode[InstallmentPaid](event)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(f.RepaymentSchedule, func(i Installment) bool { return i.ID == data.InstallmentID })
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrInstallmentNotFound, data.InstallmentID)
		}
		at := data.PaidAt
		f.RepaymentSchedule[idx].Paid = true
		f.RepaymentSchedule[idx].PaidAt = &at
		f.UpdatedAt = data.PaidAt
		f.Timeline = append(f.Timeline, TimelineItem{
			Actor:  ActorFarmer,
			Action: fmt.Sprintf("installment %d repaid", data.Sequence),
			At:     data.PaidAt,
		})
	}
	f.Version = event.Version
	return nil
}

// Ledger owns the session's financings. Every mutation appends one audit
// event; a failed append leaves the financing untouched.
type Ledger struct {
	mu          sync.RWMutex
	eventStore  store.EventStoreInterface
	financings  map[string]*Financing
	ids         []string // most recent first
	clock       func() time.Time
	newID       func() string
	defaultRate decimal.Decimal
	penaltyRate decimal.Decimal
}

type Option func(*Ledger)

// WithClock overrides the ledger clock for testing
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithIDGenerator overrides financing id assignment
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithDefaultAnnualRate sets the rate new applications start with
func WithDefaultAnnualRate(percent decimal.Decimal) Option {
	return func(l *Ledger) { l.defaultRate = percent }
}

// WithEarlyPayoffPenalty sets the compensation rate used by QuoteEarlyPayoff
func WithEarlyPayoffPenalty(percent decimal.Decimal) Option {
	return func(l *Ledger) { l.penaltyRate = percent }
}

func NewLedger(es store.EventStoreInterface, opts ...Option) *Ledger {
	l := &Ledger{
		eventStore:  es,
		financings:  make(map[string]*Financing),
		clock:       time.Now,
		newID:       func() string { return "fin_" + uuid.New().String() },
		defaultRate: DefaultAnnualRatePercent,
		penaltyRate: DefaultPenaltyRatePercent,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// commit applies the event to a copy of base, appends it to the audit trail
// and only then replaces the ledger entry.
func (l *Ledger) commit(ctx context.Context, id string, base *Financing, eventType string, data any) (*Financing, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	next := &Financing{}
	if base != nil {
		next = base.clone()
	}
	if err := next.ApplyEvent(store.Event{
		AggregateID:   id,
		AggregateType: AggregateType,
		EventType:     eventType,
		Data:          payload,
		Version:       next.Version + 1,
	}); err != nil {
		return nil, err
	}

	stored, err := l.eventStore.Append(ctx, id, AggregateType, eventType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s for financing %s: %w", eventType, id, err)
	}
	if stored != nil {
		next.Version = stored.Version
	}

	if base == nil {
		l.ids = append([]string{id}, l.ids...)
	}
	l.financings[id] = next
	return next, nil
}

// Apply submits a financing application
func (l *Ledger) Apply(ctx context.Context, farmerID string, amount decimal.Decimal, termMonths int, purpose string) (*Financing, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if termMonths < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTerm, termMonths)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.newID()
	f, err := l.commit(ctx, id, nil, EventFinancingApplied, FinancingApplied{
		FinancingID:       id,
		FarmerID:          farmerID,
		Amount:            amount,
		TermMonths:        termMonths,
		Purpose:           strings.TrimSpace(purpose),
		AnnualRatePercent: l.defaultRate,
		AppliedAt:         l.clock(),
	})
	if err != nil {
		return nil, err
	}
	return f.clone(), nil
}

type transition struct {
	actor Actor
	note  string
}

type TransitionOption func(*transition)

// WithActor attributes the timeline entry to actor instead of the default
func WithActor(actor Actor) TransitionOption {
	return func(t *transition) { t.actor = actor }
}

// WithNote attaches a note to the timeline entry
func WithNote(note string) TransitionOption {
	return func(t *transition) { t.note = note }
}

// AdvanceStatus moves a financing forward one step. Entering disbursed also
// generates the repayment schedule in the same audit event.
func (l *Ledger) AdvanceStatus(ctx context.Context, id string, next Status, opts ...TransitionOption) (*Financing, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	tr := transition{actor: defaultActors[next]}
	for _, opt := range opts {
		opt(&tr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.financings[id]
	if !ok {
		return nil, ErrFinancingNotFound
	}
	updated, err := l.advanceLocked(ctx, f, next, tr)
	if err != nil {
		return nil, err
	}
	return updated.clone(), nil
}

func (l *Ledger) advanceLocked(ctx context.Context, f *Financing, next Status, tr transition) (*Financing, error) {
	if !f.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s (allowed: %v)",
			ErrInvalidTransition, f.Status, next, validTransitions.Successors(f.Status))
	}
	if !tr.actor.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActor, tr.actor)
	}

	now := l.clock()
	switch next {
	case StatusDisbursed:
		schedule, err := l.generateSchedule(f, f.AnnualRatePercent, now)
		if err != nil {
			return nil, err
		}
		return l.commit(ctx, f.ID, f, EventFinancingDisbursed, FinancingDisbursed{
			FinancingID: f.ID,
			Actor:       tr.actor,
			Note:        tr.note,
			Schedule:    schedule,
			DisbursedAt: now,
		})
	case StatusSettled:
		if !f.IsFullyRepaid() {
			principal, unpaid := f.Outstanding()
			return nil, fmt.Errorf("%w: %d installments, principal %s", ErrOutstandingBalance, unpaid, principal)
		}
	}

	return l.commit(ctx, f.ID, f, EventFinancingStatusChanged, FinancingStatusChanged{
		FinancingID: f.ID,
		From:        f.Status,
		To:          next,
		Actor:       tr.actor,
		Note:        tr.note,
		ChangedAt:   now,
	})
}

// generateSchedule builds the installments for f once, at disbursement
func (l *Ledger) generateSchedule(f *Financing, annualRatePercent decimal.Decimal, disbursedAt time.Time) ([]Installment, error) {
	if len(f.RepaymentSchedule) > 0 {
		return nil, ErrScheduleExists
	}
	return BuildSchedule(f.Amount, annualRatePercent, f.TermMonths, disbursedAt, func(seq int) string {
		return fmt.Sprintf("%s_inst_%02d", f.ID, seq)
	})
}

// SetAnnualRate records the rate quoted by the bank before the contract is signed
func (l *Ledger) SetAnnualRate(ctx context.Context, id string, annualRatePercent decimal.Decimal) (*Financing, error) {
	if annualRatePercent.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRate, annualRatePercent)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.financings[id]
	if !ok {
		return nil, ErrFinancingNotFound
	}
	if !rateAdjustable[f.Status] {
		return nil, fmt.Errorf("%w: financing is %s", ErrRateLocked, f.Status)
	}

	updated, err := l.commit(ctx, id, f, EventFinancingRateSet, FinancingRateSet{
		FinancingID:       id,
		AnnualRatePercent: annualRatePercent,
		SetAt:             l.clock(),
	})
	if err != nil {
		return nil, err
	}
	return updated.clone(), nil
}

// MarkInstallmentPaid flips one installment to paid. It never changes the
// financing status; see SyncRepaymentStatus.
func (l *Ledger) MarkInstallmentPaid(ctx context.Context, id, installmentID string) (*Financing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.financings[id]
	if !ok {
		return nil, ErrFinancingNotFound
	}
	idx := slices.IndexFunc(f.RepaymentSchedule, func(i Installment) bool { return i.ID == installmentID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s on financing %s", ErrInstallmentNotFound, installmentID, id)
	}
	inst := f.RepaymentSchedule[idx]
	if inst.Paid {
		return nil, fmt.Errorf("%w: %s", ErrInstallmentAlreadyPaid, installmentID)
	}

	updated, err := l.commit(ctx, id, f, EventInstallmentPaid, InstallmentPaid{
		FinancingID:   id,
		InstallmentID: installmentID,
		Sequence:      inst.Sequence,
		PaidAt:        l.clock(),
	})
	if err != nil {
		return nil, err
	}
	return updated.clone(), nil
}

// SyncRepaymentStatus derives the status from the schedule: disbursed becomes
// repaying once any installment is paid, repaying becomes settled once all are.
// It is a no-op when neither applies.
func (l *Ledger) SyncRepaymentStatus(ctx context.Context, id string) (*Financing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.financings[id]
	if !ok {
		return nil, ErrFinancingNotFound
	}

	if f.Status == StatusDisbursed && f.paidCount() > 0 {
		next, err := l.advanceLocked(ctx, f, StatusRepaying, transition{actor: ActorBank})
		if err != nil {
			return nil, err
		}
		f = next
	}
	if f.Status == StatusRepaying && f.IsFullyRepaid() {
		next, err := l.advanceLocked(ctx, f, StatusSettled, transition{actor: ActorBank, note: "all installments repaid"})
		if err != nil {
			return nil, err
		}
		f = next
	}
	return f.clone(), nil
}

// QuoteEarlyPayoff estimates settling the unpaid installments now, using the
// financing's rate and the ledger's penalty rate.
func (l *Ledger) QuoteEarlyPayoff(id string) (PayoffQuote, error) {
	l.mu.RLock()
	f, ok := l.financings[id]
	l.mu.RUnlock()
	if !ok {
		return PayoffQuote{}, ErrFinancingNotFound
	}

	principal, unpaid := f.Outstanding()
	return ComputeEarlyPayoff(principal, f.AnnualRatePercent, unpaid, WithPenaltyRate(l.penaltyRate))
}

// Outstanding returns the unpaid principal and installment count of one financing
func (l *Ledger) Outstanding(id string) (decimal.Decimal, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.financings[id]
	if !ok {
		return decimal.Zero, 0, ErrFinancingNotFound
	}
	principal, unpaid := f.Outstanding()
	return principal, unpaid, nil
}

// OverdueInstallments lists one financing's overdue installments at asOf
func (l *Ledger) OverdueInstallments(id string, asOf time.Time) ([]Installment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.financings[id]
	if !ok {
		return nil, ErrFinancingNotFound
	}
	return f.OverdueInstallments(asOf), nil
}

func (l *Ledger) IsFullyRepaid(id string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.financings[id]
	if !ok {
		return false, ErrFinancingNotFound
	}
	return f.IsFullyRepaid(), nil
}

// Get returns a copy of one financing
func (l *Ledger) Get(id string) (*Financing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.financings[id]
	if !ok {
		return nil, ErrFinancingNotFound
	}
	return f.clone(), nil
}

// List returns copies of all financings, most recent first
func (l *Ledger) List() []*Financing {
	return l.listWhere(func(*Financing) bool { return true })
}

// ListByFarmer returns one farmer's financings, most recent first
func (l *Ledger) ListByFarmer(farmerID string) []*Financing {
	return l.listWhere(func(f *Financing) bool { return f.FarmerID == farmerID })
}

func (l *Ledger) listWhere(keep func(*Financing) bool) []*Financing {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Financing, 0, len(l.ids))
	for _, id := range l.ids {
		if f := l.financings[id]; keep(f) {
			out = append(out, f.clone())
		}
	}
	return out
}

// Restore replaces the ledger contents with financings rebuilt from audit events
func (l *Ledger) Restore(events []store.Event) error {
	financings, err := aggregate.Replay(events, AggregateType, func() *Financing { return &Financing{} })
	if err != nil {
		return err
	}

	slices.SortStableFunc(financings, func(a, b *Financing) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	l.financings = make(map[string]*Financing, len(financings))
	l.ids = make([]string, 0, len(financings))
	for _, f := range financings {
		l.financings[f.ID] = f
		l.ids = append(l.ids, f.ID)
	}
	log.Printf("[Financing] Restored %d financings from %d events", len(financings), len(events))
	return nil
}
