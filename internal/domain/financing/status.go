package financing

import "github.com/example/agri-workflow/internal/domain/aggregate"

type Status string

const (
	StatusApplied   Status = "applied"
	StatusReviewing Status = "reviewing"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSigned    Status = "signed"
	StatusDisbursed Status = "disbursed"
	StatusRepaying  Status = "repaying"
	StatusSettled   Status = "settled"
)

// Actor is the party a timeline entry is attributed to
type Actor string

const (
	ActorFarmer Actor = "farmer"
	ActorBank   Actor = "bank"
	ActorAdmin  Actor = "admin"
)

// validTransitions is forward-only
var validTransitions = aggregate.Transitions[Status]{
	StatusApplied:   {StatusReviewing, StatusRejected},
	StatusReviewing: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusSigned},
	StatusSigned:    {StatusDisbursed},
	StatusDisbursed: {StatusRepaying},
	StatusRepaying:  {StatusSettled},
	StatusRejected:  {},
	StatusSettled:   {},
}

var defaultActors = map[Status]Actor{
	StatusReviewing: ActorBank,
	StatusApproved:  ActorBank,
	StatusRejected:  ActorBank,
	StatusSigned:    ActorFarmer,
	StatusDisbursed: ActorBank,
	StatusRepaying:  ActorBank,
	StatusSettled:   ActorBank,
}

var statusActions = map[Status]string{
	StatusReviewing: "application under review",
	StatusApproved:  "application approved",
	StatusRejected:  "application rejected",
	StatusSigned:    "contract signed",
	StatusDisbursed: "funds disbursed",
	StatusRepaying:  "repayment started",
	StatusSettled:   "loan settled",
}

// rateAdjustable lists the statuses in which the bank may quote a rate:
// under review and approved but not yet signed
var rateAdjustable = map[Status]bool{
	StatusReviewing: true,
	StatusApproved:  true,
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (a Actor) Valid() bool {
	switch a {
	case ActorFarmer, ActorBank, ActorAdmin:
		return true
	}
	return false
}

// CanTransitionTo checks if the financing can transition to the target status
func (f *Financing) CanTransitionTo(target Status) bool {
	return validTransitions.Allows(f.Status, target)
}
