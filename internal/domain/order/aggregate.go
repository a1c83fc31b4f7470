package order

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

const AggregateType = "Order"

// DefaultMaxRefundAttempts bounds how many times a failed refund can be resubmitted
const DefaultMaxRefundAttempts = 3

var (
	ErrOrderNotFound           = fmt.Errorf("order %w", aggregate.ErrNotFound)
	ErrEmptyOrder              = fmt.Errorf("%w: order must have at least one item", aggregate.ErrInvalidInput)
	ErrInvalidItem             = fmt.Errorf("%w: item quantity must be positive and price non-negative", aggregate.ErrInvalidInput)
	ErrUnknownStatus           = fmt.Errorf("%w: unknown order status", aggregate.ErrInvalidInput)
	ErrUnknownRefundStatus     = fmt.Errorf("%w: unknown refund decision", aggregate.ErrInvalidInput)
	ErrInvalidActor            = fmt.Errorf("%w: unknown refund actor", aggregate.ErrInvalidInput)
	ErrRefundReasonRequired    = fmt.Errorf("%w: refund reason is required", aggregate.ErrInvalidInput)
	ErrInvalidTransition       = fmt.Errorf("%w: invalid order status transition", aggregate.ErrIllegalTransition)
	ErrOrderCancelled          = fmt.Errorf("%w: order is already cancelled", aggregate.ErrIllegalTransition)
	ErrOrderClosed             = fmt.Errorf("%w: order is closed", aggregate.ErrIllegalTransition)
	ErrManagedTransition       = fmt.Errorf("%w: status is reached through the refund workflow", aggregate.ErrIllegalTransition)
	ErrShippingLocked          = fmt.Errorf("%w: shipping can only change before payment", aggregate.ErrIllegalTransition)
	ErrNoActiveRefund          = fmt.Errorf("%w: order has no active refund", aggregate.ErrIllegalTransition)
	ErrInvalidRefundTransition = fmt.Errorf("%w: invalid refund transition", aggregate.ErrIllegalTransition)
	ErrRefundAttemptsExhausted = fmt.Errorf("%w: refund attempts exhausted", aggregate.ErrIllegalTransition)
)

// Order is one buyer purchase. TotalAmount is fixed at creation.
type Order struct {
	ID             string              `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Status         Status              `json:"status"`
	Items          []OrderItem         `json:"items"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	Shipping       *ShippingInfo       `json:"shipping,omitempty"`
	RefundReason   string              `json:"refund_reason,omitempty"`
	RefundStatus   RefundStatus        `json:"refund_status,omitempty"`
	RefundHistory  []RefundHistoryItem `json:"refund_history,omitempty"`
	RefundAttempts int                 `json:"refund_attempts,omitempty"`
	Version        int                 `json:"version"`
}

// Aggregate interface implementation
func (o *Order) GetID() string   { return o.ID }
func (o *Order) GetVersion() int { return o.Version }

func (o *Order) clone() *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.RefundHistory = slices.Clone(o.RefundHistory)
	if o.Shipping != nil {
		s := *o.Shipping
		c.Shipping = &s
	}
	return &c
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderCreated:
		data, err := aggregate.Decode[OrderCreated](event)
		if err != nil {
			return err
		}
		o.ID = data.OrderID
		o.Items = data.Items
		o.TotalAmount = data.TotalAmount
		o.Status = StatusPending
		o.CreatedAt = data.CreatedAt
		o.UpdatedAt = data.CreatedAt
	case EventOrderStatusChanged:
		data, err := aggregate.Decode[OrderStatusChanged](event)
		if err != nil {
			return err
		}
		o.Status = data.To
		o.UpdatedAt = data.ChangedAt
	case EventOrderCancelled:
		data, err := aggregate.Decode[OrderCancelled](event)
		if err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.UpdatedAt = data.CancelledAt
	case EventOrderShippingUpdated:
		data, err := aggregate.Decode[OrderShippingUpdated](event)
		if err != nil {
			return err
		}
		o.Shipping = &data.Shipping
		o.UpdatedAt = data.UpdatedAt
	case EventRefundRequested:
		data, err := aggregate.Decode[RefundRequested](event)
		if err != nil {
			return err
		}
		o.Status = StatusRefunding
		o.RefundStatus = RefundPending
		o.RefundReason = data.Reason
		o.RefundAttempts = 1
		o.RefundHistory = append(o.RefundHistory, RefundHistoryItem{
			Actor:  ActorBuyer,
			Action: "refund requested",
			Note:   data.Reason,
			At:     data.RequestedAt,
		})
		o.UpdatedAt = data.RequestedAt
	case EventRefundDecisionRecorded:
		data, err := aggregate.Decode[RefundDecisionRecorded](event)
		if err != nil {
			return err
		}
		o.RefundStatus = data.Decision
		o.RefundHistory = append(o.RefundHistory, RefundHistoryItem{
			Actor:  data.Actor,
			Action: data.Action,
			Note:   data.Note,
			At:     data.DecidedAt,
		})
		if data.Decision == RefundSuccess {
			o.Status = StatusRefunded
		}
		o.UpdatedAt = data.DecidedAt
	case EventRefundResubmitted:
		data, err := aggregate.Decode[RefundResubmitted](event)
		if err != nil {
			return err
		}
		o.RefundStatus = RefundPending
		o.RefundReason = data.Reason
		o.RefundAttempts = data.Attempt
		o.RefundHistory = append(o.RefundHistory, RefundHistoryItem{
			Actor:  ActorBuyer,
			Action: "refund resubmitted",
			Note:   data.Reason,
			At:     data.ResubmittedAt,
		})
		o.UpdatedAt = data.ResubmittedAt
	}
	o.Version = event.Version
	return nil
}

// Ledger owns the session's orders. Every mutation appends one audit event;
// a failed append leaves the order untouched.
type Ledger struct {
	mu                sync.RWMutex
	eventStore        store.EventStoreInterface
	orders            map[string]*Order
	ids               []string // most recent first
	clock             func() time.Time
	newID             func() string
	maxRefundAttempts int
}

type Option func(*Ledger)

// WithClock overrides the ledger clock for testing
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithIDGenerator overrides order id assignment
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

func WithMaxRefundAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRefundAttempts = n
		}
	}
}

func NewLedger(es store.EventStoreInterface, opts ...Option) *Ledger {
	l := &Ledger{
		eventStore:        es,
		orders:            make(map[string]*Order),
		clock:             time.Now,
		newID:             func() string { return "ord_" + uuid.New().String() },
		maxRefundAttempts: DefaultMaxRefundAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// commit applies the event to a copy of base, appends it to the audit trail
// and only then replaces the ledger entry.
func (l *Ledger) commit(ctx context.Context, id string, base *Order, eventType string, data any) (*Order, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	next := &Order{}
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
		return nil, fmt.Errorf("failed to record %s for order %s: %w", eventType, id, err)
	}
	if stored != nil {
		next.Version = stored.Version
	}

	if base == nil {
		l.ids = append([]string{id}, l.ids...)
	}
	l.orders[id] = next
	return next.clone(), nil
}

// CreateFromItems creates a pending order and prepends it to the ledger
func (l *Ledger) CreateFromItems(ctx context.Context, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 || item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidItem, item.ProductID)
		}
		total = total.Add(item.Subtotal())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.newID()
	return l.commit(ctx, id, nil, EventOrderCreated, OrderCreated{
		OrderID:     id,
		Items:       slices.Clone(items),
		TotalAmount: total,
		CreatedAt:   l.clock(),
	})
}

// AdvanceStatus moves an order to a direct successor of its current status
func (l *Ledger) AdvanceStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !o.CanTransitionTo(next) {
		return nil, o.transitionError(next)
	}
	if via, managed := managedTargets[next]; managed {
		return nil, fmt.Errorf("%w: use %s to reach %s", ErrManagedTransition, via, next)
	}

	if next == StatusCancelled {
		return l.commit(ctx, orderID, o, EventOrderCancelled, OrderCancelled{
			OrderID:     orderID,
			CancelledAt: l.clock(),
		})
	}
	return l.commit(ctx, orderID, o, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:   orderID,
		From:      o.Status,
		To:        next,
		ChangedAt: l.clock(),
	})
}

// Cancel cancels a pending order
func (l *Ledger) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return l.AdvanceStatus(ctx, orderID, StatusCancelled)
}

// UpdateShipping records checkout details while the order is still pending
func (l *Ledger) UpdateShipping(ctx context.Context, orderID string, shipping ShippingInfo) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrShippingLocked, o.Status)
	}

	return l.commit(ctx, orderID, o, EventOrderShippingUpdated, OrderShippingUpdated{
		OrderID:   orderID,
		Shipping:  shipping,
		UpdatedAt: l.clock(),
	})
}

// RequestRefund opens a refund on a paid order
func (l *Ledger) RequestRefund(ctx context.Context, orderID, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRefundReasonRequired
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !o.CanTransitionTo(StatusRefunding) {
		return nil, o.transitionError(StatusRefunding)
	}

	return l.commit(ctx, orderID, o, EventRefundRequested, RefundRequested{
		OrderID:     orderID,
		Reason:      reason,
		RequestedAt: l.clock(),
	})
}

// RecordRefundDecision advances the refund sub-process. A success decision
// also moves the order to refunded.
func (l *Ledger) RecordRefundDecision(ctx context.Context, orderID string, actor Actor, decision RefundStatus, note string) (*Order, error) {
	if !actor.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActor, actor)
	}
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRefundStatus, decision)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != StatusRefunding {
		return nil, fmt.Errorf("%w: order is %s", ErrNoActiveRefund, o.Status)
	}
	if !refundTransitions.Allows(o.RefundStatus, decision) {
		return nil, fmt.Errorf("%w: cannot move refund from %s to %s", ErrInvalidRefundTransition, o.RefundStatus, decision)
	}

	return l.commit(ctx, orderID, o, EventRefundDecisionRecorded, RefundDecisionRecorded{
		OrderID:   orderID,
		Actor:     actor,
		Decision:  decision,
		Action:    refundActions[decision],
		Note:      note,
		DecidedAt: l.clock(),
	})
}

// ResubmitRefund reopens a failed refund, up to the ledger's attempt limit
func (l *Ledger) ResubmitRefund(ctx context.Context, orderID, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRefundReasonRequired
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != StatusRefunding || o.RefundStatus != RefundFailed {
		return nil, fmt.Errorf("%w: only a failed refund can be resubmitted", ErrInvalidRefundTransition)
	}
	if o.RefundAttempts >= l.maxRefundAttempts {
		return nil, fmt.Errorf("%w: %d of %d used", ErrRefundAttemptsExhausted, o.RefundAttempts, l.maxRefundAttempts)
	}

	return l.commit(ctx, orderID, o, EventRefundResubmitted, RefundResubmitted{
		OrderID:       orderID,
		Reason:        reason,
		Attempt:       o.RefundAttempts + 1,
		ResubmittedAt: l.clock(),
	})
}

// Get returns a copy of one order
func (l *Ledger) Get(orderID string) (*Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.clone(), nil
}

// List returns copies of all orders, most recent first
func (l *Ledger) List() []*Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Order, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.orders[id].clone())
	}
	return out
}

// Restore replaces the ledger contents with orders rebuilt from audit events
func (l *Ledger) Restore(events []store.Event) error {
	orders, err := aggregate.Replay(events, AggregateType, func() *Order { return &Order{} })
	if err != nil {
		return err
	}

	slices.SortStableFunc(orders, func(a, b *Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	l.orders = make(map[string]*Order, len(orders))
	l.ids = make([]string, 0, len(orders))
	for _, o := range orders {
		l.orders[o.ID] = o
		l.ids = append(l.ids, o.ID)
	}
	log.Printf("[Order] Restored %d orders from %d events", len(orders), len(events))
	return nil
}
