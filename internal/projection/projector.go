package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/example/agri-workflow/internal/domain/aggregate"
	"github.com/example/agri-workflow/internal/domain/financing"
	"github.com/example/agri-workflow/internal/domain/order"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/readmodel"
	"github.com/shopspring/decimal"
)

// Projector rebuilds dashboard read models from the audit stream. Entity
// state is folded with the ledgers' own ApplyEvent so the read side never
// reimplements transition rules.
type Projector struct {
	readStore store.ReadStoreInterface

	mu         sync.Mutex
	orders     map[string]*order.Order
	financings map[string]*financing.Financing
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{
		readStore:  readStore,
		orders:     make(map[string]*order.Order),
		financings: make(map[string]*financing.Financing),
	}
}

// HandleEvent is a kafka.MessageHandler
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode audit event %s: %w", key, err)
	}
	return p.Project(event)
}

// Project applies one audit event. Redelivered events (version already seen)
// are skipped.
func (p *Projector) Project(event store.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Printf("[Projector] Received event: %s (aggregate: %s)", event.EventType, event.AggregateType)

	switch event.AggregateType {
	case order.AggregateType:
		return p.handleOrderEvent(event)
	case financing.AggregateType:
		return p.handleFinancingEvent(event)
	}
	return nil
}

func (p *Projector) handleOrderEvent(event store.Event) error {
	o, ok := p.orders[event.AggregateID]
	if !ok {
		o = &order.Order{}
	}
	if skip(event, o.Version) {
		return nil
	}
	if err := o.ApplyEvent(event); err != nil {
		return err
	}
	p.orders[event.AggregateID] = o

	model := &readmodel.OrderReadModel{
		ID:             o.ID,
		Status:         string(o.Status),
		TotalAmount:    o.TotalAmount,
		ItemCount:      len(o.Items),
		RefundStatus:   string(o.RefundStatus),
		RefundAttempts: o.RefundAttempts,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Version:        o.Version,
	}
	if o.Shipping != nil {
		model.Recipient = o.Shipping.Name
	}
	p.readStore.Set(readmodel.CollectionOrders, o.ID, model)
	return nil
}

func (p *Projector) handleFinancingEvent(event store.Event) error {
	f, ok := p.financings[event.AggregateID]
	if !ok {
		f = &financing.Financing{}
	}
	if skip(event, f.Version) {
		return nil
	}
	if err := f.ApplyEvent(event); err != nil {
		return err
	}
	p.financings[event.AggregateID] = f

	p.readStore.Set(readmodel.CollectionFinancings, f.ID, financingReadModel(f))
	return p.updateFarmerSummary(f, event)
}

func financingReadModel(f *financing.Financing) *readmodel.FinancingReadModel {
	outstanding, unpaid := f.Outstanding()
	model := &readmodel.FinancingReadModel{
		ID:                   f.ID,
		FarmerID:             f.FarmerID,
		Status:               string(f.Status),
		Amount:               f.Amount,
		AnnualRatePercent:    f.AnnualRatePercent,
		TermMonths:           f.TermMonths,
		PaidInstallments:     len(f.RepaymentSchedule) - unpaid,
		TotalInstallments:    len(f.RepaymentSchedule),
		OutstandingPrincipal: outstanding,
		UpdatedAt:            f.UpdatedAt,
		Version:              f.Version,
	}
	if i := slices.IndexFunc(f.RepaymentSchedule, func(inst financing.Installment) bool { return !inst.Paid }); i >= 0 {
		due := f.RepaymentSchedule[i].DueDate
		model.NextDueDate = &due
	}
	return model
}

func (p *Projector) updateFarmerSummary(f *financing.Financing, event store.Event) error {
	summary := p.farmerSummary(f.FarmerID)

	switch event.EventType {
	case financing.EventFinancingApplied:
		summary.Applications++
		summary.Requested = summary.Requested.Add(f.Amount)

	case financing.EventFinancingDisbursed:
		summary.Disbursed = summary.Disbursed.Add(f.Amount)

	case financing.EventInstallmentPaid:
		e, err := aggregate.Decode[financing.InstallmentPaid](event)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(f.RepaymentSchedule, func(inst financing.Installment) bool { return inst.ID == e.InstallmentID })
		if idx >= 0 {
			summary.Repaid = summary.Repaid.Add(f.RepaymentSchedule[idx].Principal)
		}

	case financing.EventFinancingStatusChanged:
		switch f.Status {
		case financing.StatusRejected:
			summary.Rejected++
		case financing.StatusSettled:
			summary.Settled++
		}
	}

	p.readStore.Set(readmodel.CollectionFarmerSummaries, f.FarmerID, summary)
	return nil
}

func (p *Projector) farmerSummary(farmerID string) *readmodel.FarmerSummaryReadModel {
	// copy so readers holding the stored pointer never see a half-applied event
	if current, ok := store.Lookup[*readmodel.FarmerSummaryReadModel](p.readStore, readmodel.CollectionFarmerSummaries, farmerID); ok {
		next := *current
		return &next
	}
	return &readmodel.FarmerSummaryReadModel{
		FarmerID:  farmerID,
		Requested: decimal.Zero,
		Disbursed: decimal.Zero,
		Repaid:    decimal.Zero,
	}
}

func skip(event store.Event, seen int) bool {
	if event.Version <= seen {
		log.Printf("[Projector] Skipping duplicate %s v%d for %s", event.EventType, event.Version, event.AggregateID)
		return true
	}
	if event.Version != seen+1 {
		log.Printf("[Projector] Version gap for %s: have v%d, got v%d", event.AggregateID, seen, event.Version)
	}
	return false
}
