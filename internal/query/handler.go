package query

import (
	"log"
	"slices"
	"time"

	"github.com/example/agri-workflow/internal/domain/financing"
	"github.com/example/agri-workflow/internal/domain/order"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/readmodel"
	"github.com/shopspring/decimal"
)

// Handler answers role-shell reads from the ledgers and, for dashboards,
// from the projected read store.
type Handler struct {
	orders     *order.Ledger
	financings *financing.Ledger
	readStore  store.ReadStoreInterface
}

// NewHandler accepts a nil readStore when no projection runs in-process
func NewHandler(orders *order.Ledger, financings *financing.Ledger, readStore store.ReadStoreInterface) *Handler {
	return &Handler{
		orders:     orders,
		financings: financings,
		readStore:  readStore,
	}
}

// Orders
func (h *Handler) GetOrder(id string) (*order.Order, error) {
	return h.orders.Get(id)
}

// ListOrders returns orders most recent first; StatusAll or "" matches every status
func (h *Handler) ListOrders(status order.Status, window order.DateRange) []*order.Order {
	return slices.Collect(h.orders.Filter(status, window))
}

// refundQueues lists the refund states each actor is expected to act on
var refundQueues = map[order.Actor][]order.RefundStatus{
	order.ActorSeller:   {order.RefundPending},
	order.ActorPlatform: {order.RefundApproved, order.RefundEscalated},
	order.ActorBuyer:    {order.RefundRejected, order.RefundFailed},
}

// RefundQueue returns the refunding orders waiting on actor
func (h *Handler) RefundQueue(actor order.Actor) []*order.Order {
	waiting := refundQueues[actor]
	queue := make([]*order.Order, 0)
	for o := range h.orders.Filter(order.StatusRefunding, order.DateRange{}) {
		if slices.Contains(waiting, o.RefundStatus) {
			queue = append(queue, o)
		}
	}
	return queue
}

// Financings
func (h *Handler) GetFinancing(id string) (*financing.Financing, error) {
	return h.financings.Get(id)
}

// ListFinancings returns one farmer's financings, or all when farmerID is empty
func (h *Handler) ListFinancings(farmerID string) []*financing.Financing {
	if farmerID == "" {
		return h.financings.List()
	}
	return h.financings.ListByFarmer(farmerID)
}

func (h *Handler) QuoteEarlyPayoff(id string) (financing.PayoffQuote, error) {
	return h.financings.QuoteEarlyPayoff(id)
}

// DueInstallment is an unpaid installment with its financing
type DueInstallment struct {
	FinancingID string                `json:"financing_id"`
	Installment financing.Installment `json:"installment"`
}

// UpcomingInstallments lists a farmer's unpaid installments due on or before
// until, earliest first.
func (h *Handler) UpcomingInstallments(farmerID string, until time.Time) []DueInstallment {
	due := make([]DueInstallment, 0)
	for _, f := range h.financings.ListByFarmer(farmerID) {
		for _, inst := range f.RepaymentSchedule {
			if !inst.Paid && !inst.DueDate.After(until) {
				due = append(due, DueInstallment{FinancingID: f.ID, Installment: inst})
			}
		}
	}
	slices.SortStableFunc(due, func(a, b DueInstallment) int {
		return a.Installment.DueDate.Compare(b.Installment.DueDate)
	})
	return due
}

// OverdueInstallment is one missed payment on the bank's overdue list
type OverdueInstallment struct {
	FinancingID string                `json:"financing_id"`
	FarmerID    string                `json:"farmer_id"`
	Installment financing.Installment `json:"installment"`
	DaysOverdue int                   `json:"days_overdue"`
}

// OverdueInstallments lists every installment overdue at asOf, longest overdue first
func (h *Handler) OverdueInstallments(asOf time.Time) []OverdueInstallment {
	overdue := make([]OverdueInstallment, 0)
	for _, f := range h.financings.List() {
		for _, inst := range f.OverdueInstallments(asOf) {
			overdue = append(overdue, OverdueInstallment{
				FinancingID: f.ID,
				FarmerID:    f.FarmerID,
				Installment: inst,
				DaysOverdue: inst.DaysOverdue(asOf),
			})
		}
	}
	slices.SortStableFunc(overdue, func(a, b OverdueInstallment) int {
		return a.Installment.DueDate.Compare(b.Installment.DueDate)
	})
	return overdue
}

// PortfolioSummary is the bank dashboard headline
type PortfolioSummary struct {
	ByStatus             map[financing.Status]int `json:"by_status"`
	Disbursed            decimal.Decimal          `json:"disbursed"`
	OutstandingPrincipal decimal.Decimal          `json:"outstanding_principal"`
}

func (h *Handler) Portfolio() PortfolioSummary {
	summary := PortfolioSummary{
		ByStatus:             make(map[financing.Status]int),
		Disbursed:            decimal.Zero,
		OutstandingPrincipal: decimal.Zero,
	}
	for _, f := range h.financings.List() {
		summary.ByStatus[f.Status]++
		if f.DisbursedAt != nil {
			summary.Disbursed = summary.Disbursed.Add(f.Amount)
		}
		outstanding, _ := f.Outstanding()
		summary.OutstandingPrincipal = summary.OutstandingPrincipal.Add(outstanding)
	}
	return summary
}

// Projected dashboards
func (h *Handler) GetFarmerSummary(farmerID string) (*readmodel.FarmerSummaryReadModel, bool) {
	if h.readStore == nil {
		log.Printf("[Query] No read store configured for farmer summary %s", farmerID)
		return nil, false
	}
	return store.Lookup[*readmodel.FarmerSummaryReadModel](h.readStore, readmodel.CollectionFarmerSummaries, farmerID)
}

// ListProjectedFinancings returns the projected financing rows ordered by id
func (h *Handler) ListProjectedFinancings() []*readmodel.FinancingReadModel {
	if h.readStore == nil {
		return nil
	}
	return store.All[*readmodel.FinancingReadModel](h.readStore, readmodel.CollectionFinancings)
}
