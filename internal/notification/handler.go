package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/agri-workflow/internal/domain/aggregate"
	"github.com/example/agri-workflow/internal/domain/financing"
	"github.com/example/agri-workflow/internal/domain/order"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/navigation"
)

// Notification tells one role shell that something needs its attention
type Notification struct {
	Role        navigation.Role `json:"role"`
	AggregateID string          `json:"aggregate_id"`
	Subject     string          `json:"subject"`
	Body        string          `json:"body,omitempty"`
	At          time.Time       `json:"at"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Handler turns audit events into notifications for the roles that must act next
type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	return h.dispatch(ctx, event)
}

// Publish lets the handler sit directly behind an event store
func (h *Handler) Publish(ctx context.Context, key string, event any) error {
	e, ok := event.(store.Event)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	return h.dispatch(ctx, e)
}

func (h *Handler) dispatch(ctx context.Context, event store.Event) error {
	notes, err := Notify(event)
	if err != nil {
		log.Printf("[Notifier] Failed to decode %s: %v", event.EventType, err)
		return err
	}
	for _, n := range notes {
		if err := h.sender.Send(ctx, n); err != nil {
			log.Printf("[Notifier] Failed to notify %s about %s: %v", n.Role, n.AggregateID, err)
			return err
		}
		log.Printf("[Notifier] Notified %s: %s", n.Role, n.Subject)
	}
	return nil
}

// Notify derives the notifications for one audit event; most events produce none
func Notify(event store.Event) ([]Notification, error) {
	switch event.AggregateType {
	case order.AggregateType:
		return orderNotifications(event)
	case financing.AggregateType:
		return financingNotifications(event)
	}
	return nil, nil
}

// refund actors map onto the shell that acts for them
var actorRoles = map[order.Actor]navigation.Role{
	order.ActorBuyer:    navigation.RoleBuyer,
	order.ActorSeller:   navigation.RoleFarmer,
	order.ActorPlatform: navigation.RoleAdmin,
}

func orderNotifications(event store.Event) ([]Notification, error) {
	note := func(actor order.Actor, at time.Time, subject, body string) Notification {
		return Notification{Role: actorRoles[actor], AggregateID: event.AggregateID, Subject: subject, Body: body, At: at}
	}

	switch event.EventType {
	case order.EventOrderStatusChanged:
		e, err := aggregate.Decode[order.OrderStatusChanged](event)
		if err != nil {
			return nil, err
		}
		switch e.To {
		case order.StatusPaid:
			return []Notification{note(order.ActorSeller, e.ChangedAt, "Order "+e.OrderID+" paid, prepare shipment", "")}, nil
		case order.StatusShipped:
			return []Notification{note(order.ActorBuyer, e.ChangedAt, "Order "+e.OrderID+" shipped", "")}, nil
		}

	case order.EventRefundRequested:
		e, err := aggregate.Decode[order.RefundRequested](event)
		if err != nil {
			return nil, err
		}
		return []Notification{note(order.ActorSeller, e.RequestedAt, "Refund requested for order "+e.OrderID, e.Reason)}, nil

	case order.EventRefundResubmitted:
		e, err := aggregate.Decode[order.RefundResubmitted](event)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("Refund resubmitted for order %s (attempt %d)", e.OrderID, e.Attempt)
		return []Notification{note(order.ActorSeller, e.ResubmittedAt, subject, e.Reason)}, nil

	case order.EventRefundDecisionRecorded:
		e, err := aggregate.Decode[order.RefundDecisionRecorded](event)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("Refund for order %s: %s", e.OrderID, e.Action)
		switch e.Decision {
		case order.RefundApproved, order.RefundEscalated:
			return []Notification{note(order.ActorPlatform, e.DecidedAt, subject, e.Note)}, nil
		case order.RefundRejected, order.RefundFailed:
			return []Notification{note(order.ActorBuyer, e.DecidedAt, subject, e.Note)}, nil
		case order.RefundSuccess:
			return []Notification{
				note(order.ActorBuyer, e.DecidedAt, subject, e.Note),
				note(order.ActorSeller, e.DecidedAt, subject, e.Note),
			}, nil
		}
	}
	return nil, nil
}

func financingNotifications(event store.Event) ([]Notification, error) {
	note := func(role navigation.Role, at time.Time, subject, body string) Notification {
		return Notification{Role: role, AggregateID: event.AggregateID, Subject: subject, Body: body, At: at}
	}

	switch event.EventType {
	case financing.EventFinancingApplied:
		e, err := aggregate.Decode[financing.FinancingApplied](event)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("New financing application %s: %s over %d months", e.FinancingID, e.Amount, e.TermMonths)
		return []Notification{note(navigation.RoleBank, e.AppliedAt, subject, e.Purpose)}, nil

	case financing.EventFinancingStatusChanged:
		e, err := aggregate.Decode[financing.FinancingStatusChanged](event)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("Financing %s %s", e.FinancingID, e.To)
		switch e.To {
		case financing.StatusApproved, financing.StatusRejected:
			return []Notification{note(navigation.RoleFarmer, e.ChangedAt, subject, e.Note)}, nil
		case financing.StatusSigned:
			return []Notification{note(navigation.RoleBank, e.ChangedAt, subject+", ready to disburse", e.Note)}, nil
		case financing.StatusSettled:
			return []Notification{
				note(navigation.RoleFarmer, e.ChangedAt, subject, e.Note),
				note(navigation.RoleBank, e.ChangedAt, subject, e.Note),
			}, nil
		}

	case financing.EventFinancingDisbursed:
		e, err := aggregate.Decode[financing.FinancingDisbursed](event)
		if err != nil {
			return nil, err
		}
		body := ""
		if len(e.Schedule) > 0 {
			first := e.Schedule[0]
			body = fmt.Sprintf("First installment of %s due %s", first.Amount(), first.DueDate.Format(time.DateOnly))
		}
		return []Notification{note(navigation.RoleFarmer, e.DisbursedAt, "Financing "+e.FinancingID+" disbursed", body)}, nil
	}
	return nil, nil
}

// ReminderWindowDays is how far ahead a farmer is reminded of a due installment
const ReminderWindowDays = 3

// Reminders derives repayment notices for f at asOf: the farmer is reminded of
// installments due within ReminderWindowDays, and both farmer and bank hear
// about overdue ones.
func Reminders(f *financing.Financing, asOf time.Time) []Notification {
	var notes []Notification
	y, m, d := asOf.AddDate(0, 0, ReminderWindowDays+1).Date()
	horizon := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())
	for _, inst := range f.RepaymentSchedule {
		if inst.Paid {
			continue
		}
		note := func(role navigation.Role, subject string) Notification {
			return Notification{
				Role:        role,
				AggregateID: f.ID,
				Subject:     subject,
				Body:        fmt.Sprintf("%s due %s", inst.Amount(), inst.DueDate.Format(time.DateOnly)),
				At:          asOf,
			}
		}
		switch {
		case inst.IsOverdue(asOf):
			subject := fmt.Sprintf("Installment %d of %s overdue by %d days", inst.Sequence, f.ID, inst.DaysOverdue(asOf))
			notes = append(notes, note(navigation.RoleFarmer, subject), note(navigation.RoleBank, subject))
		case inst.DueDate.Before(horizon):
			notes = append(notes, note(navigation.RoleFarmer, fmt.Sprintf("Installment %d of %s due soon", inst.Sequence, f.ID)))
		}
	}
	return notes
}

// Remind delivers the repayment notices for every financing and returns how
// many were sent
func (h *Handler) Remind(ctx context.Context, financings []*financing.Financing, asOf time.Time) (int, error) {
	sent := 0
	for _, f := range financings {
		for _, n := range Reminders(f, asOf) {
			if err := h.sender.Send(ctx, n); err != nil {
				return sent, fmt.Errorf("failed to remind %s about %s: %w", n.Role, f.ID, err)
			}
			sent++
		}
	}
	log.Printf("[Notifier] Sent %d repayment reminders as of %s", sent, asOf.Format(time.DateOnly))
	return sent, nil
}

// Inbox keeps notifications in memory per role
type Inbox struct {
	mu    sync.RWMutex
	items map[navigation.Role][]Notification
}

func NewInbox() *Inbox {
	return &Inbox{items: make(map[navigation.Role][]Notification)}
}

func (in *Inbox) Send(ctx context.Context, n Notification) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items[n.Role] = append(in.items[n.Role], n)
	return nil
}

// For returns a role's notifications, oldest first
func (in *Inbox) For(role navigation.Role) []Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]Notification(nil), in.items[role]...)
}
