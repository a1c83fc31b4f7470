package order

import (
	"fmt"

	"github.com/example/agri-workflow/internal/domain/aggregate"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusToShip    Status = "to-ship"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusRefunding Status = "refunding"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"

	// StatusAll matches every order in Filter
	StatusAll Status = "all"
)

// RefundStatus tracks the refund sub-process while an order is refunding
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"   // buyer requested, waiting for the seller
	RefundApproved  RefundStatus = "approved"  // seller agreed, waiting for the platform
	RefundRejected  RefundStatus = "rejected"  // seller refused, buyer may escalate
	RefundEscalated RefundStatus = "escalated" // buyer asked the platform to arbitrate
	RefundSuccess   RefundStatus = "success"
	RefundFailed    RefundStatus = "failed"
)

// Actor is the party a refund history entry is attributed to
type Actor string

const (
	ActorBuyer    Actor = "buyer"
	ActorSeller   Actor = "seller"
	ActorPlatform Actor = "platform"
)

var validTransitions = aggregate.Transitions[Status]{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusToShip, StatusRefunding},
	StatusToShip:    {StatusShipped},
	StatusShipped:   {StatusCompleted},
	StatusRefunding: {StatusRefunded},
	StatusCompleted: {},
	StatusRefunded:  {},
	StatusCancelled: {},
}

var refundTransitions = aggregate.Transitions[RefundStatus]{
	RefundPending:   {RefundApproved, RefundRejected},
	RefundApproved:  {RefundSuccess},
	RefundRejected:  {RefundEscalated},
	RefundEscalated: {RefundSuccess, RefundFailed},
	RefundSuccess:   {},
	RefundFailed:    {},
}

// managedTargets can only be reached through the refund operations, which
// record the reason and the history entry in the same step.
var managedTargets = map[Status]string{
	StatusRefunding: "RequestRefund",
	StatusRefunded:  "a success refund decision",
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (r RefundStatus) Valid() bool {
	_, ok := refundTransitions[r]
	return ok
}

func (a Actor) Valid() bool {
	switch a {
	case ActorBuyer, ActorSeller, ActorPlatform:
		return true
	}
	return false
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	return validTransitions.Allows(o.Status, target)
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case validTransitions.IsTerminal(o.Status):
		return fmt.Errorf("%w: order is %s", ErrOrderClosed, o.Status)
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s (allowed: %v)",
			ErrInvalidTransition, o.Status, target, validTransitions.Successors(o.Status))
	}
}

// refundActions maps a decision to the history entry text
var refundActions = map[RefundStatus]string{
	RefundApproved:  "seller approved refund",
	RefundRejected:  "seller rejected refund",
	RefundEscalated: "escalated to platform arbitration",
	RefundSuccess:   "platform ruled refund successful",
	RefundFailed:    "platform ruled refund failed",
}
