package command

import (
	"context"
	"fmt"

	"github.com/example/agri-workflow/internal/domain/financing"
	"github.com/example/agri-workflow/internal/domain/order"
)

// Handler maps role-shell intents onto ledger operations
type Handler struct {
	orders     *order.Ledger
	financings *financing.Ledger
}

func NewHandler(orders *order.Ledger, financings *financing.Ledger) *Handler {
	return &Handler{
		orders:     orders,
		financings: financings,
	}
}

// PlaceOrder creates an order and records checkout details when given
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	o, err := h.orders.CreateFromItems(ctx, cmd.Items)
	if err != nil {
		return nil, err
	}
	if cmd.Shipping == nil {
		return o, nil
	}
	// the order stays pending without shipping details if this fails
	return h.orders.UpdateShipping(ctx, o.ID, *cmd.Shipping)
}

func (h *Handler) ConfirmPayment(ctx context.Context, cmd ConfirmPayment) (*order.Order, error) {
	return h.orders.AdvanceStatus(ctx, cmd.OrderID, order.StatusPaid)
}

func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	return h.orders.Cancel(ctx, cmd.OrderID)
}

func (h *Handler) PrepareShipment(ctx context.Context, cmd PrepareShipment) (*order.Order, error) {
	return h.orders.AdvanceStatus(ctx, cmd.OrderID, order.StatusToShip)
}

func (h *Handler) ShipOrder(ctx context.Context, cmd ShipOrder) (*order.Order, error) {
	return h.orders.AdvanceStatus(ctx, cmd.OrderID, order.StatusShipped)
}

func (h *Handler) ConfirmReceipt(ctx context.Context, cmd ConfirmReceipt) (*order.Order, error) {
	return h.orders.AdvanceStatus(ctx, cmd.OrderID, order.StatusCompleted)
}

func (h *Handler) RequestRefund(ctx context.Context, cmd RequestRefund) (*order.Order, error) {
	return h.orders.RequestRefund(ctx, cmd.OrderID, cmd.Reason)
}

func (h *Handler) DecideRefund(ctx context.Context, cmd DecideRefund) (*order.Order, error) {
	return h.orders.RecordRefundDecision(ctx, cmd.OrderID, cmd.Actor, cmd.Decision, cmd.Note)
}

func (h *Handler) ResubmitRefund(ctx context.Context, cmd ResubmitRefund) (*order.Order, error) {
	return h.orders.ResubmitRefund(ctx, cmd.OrderID, cmd.Reason)
}

func (h *Handler) ApplyFinancing(ctx context.Context, cmd ApplyFinancing) (*financing.Financing, error) {
	return h.financings.Apply(ctx, cmd.FarmerID, cmd.Amount, cmd.TermMonths, cmd.Purpose)
}

func (h *Handler) StartReview(ctx context.Context, cmd StartReview) (*financing.Financing, error) {
	return h.financings.AdvanceStatus(ctx, cmd.FinancingID, financing.StatusReviewing)
}

// ApproveFinancing quotes the rate, if any, then approves
func (h *Handler) ApproveFinancing(ctx context.Context, cmd ApproveFinancing) (*financing.Financing, error) {
	if cmd.AnnualRatePercent != nil {
		current, err := h.financings.Get(cmd.FinancingID)
		if err != nil {
			return nil, err
		}
		// reject before quoting so a doomed approval leaves no rate event behind
		if !current.CanTransitionTo(financing.StatusApproved) {
			return nil, fmt.Errorf("%w: cannot transition from %s to %s",
				financing.ErrInvalidTransition, current.Status, financing.StatusApproved)
		}
		if _, err := h.financings.SetAnnualRate(ctx, cmd.FinancingID, *cmd.AnnualRatePercent); err != nil {
			return nil, err
		}
	}
	return h.financings.AdvanceStatus(ctx, cmd.FinancingID, financing.StatusApproved, financing.WithNote(cmd.Note))
}

func (h *Handler) RejectFinancing(ctx context.Context, cmd RejectFinancing) (*financing.Financing, error) {
	return h.financings.AdvanceStatus(ctx, cmd.FinancingID, financing.StatusRejected, financing.WithNote(cmd.Note))
}

func (h *Handler) SignContract(ctx context.Context, cmd SignContract) (*financing.Financing, error) {
	return h.financings.AdvanceStatus(ctx, cmd.FinancingID, financing.StatusSigned)
}

// DisburseFinancing releases funds and generates the repayment schedule
func (h *Handler) DisburseFinancing(ctx context.Context, cmd DisburseFinancing) (*financing.Financing, error) {
	return h.financings.AdvanceStatus(ctx, cmd.FinancingID, financing.StatusDisbursed, financing.WithNote(cmd.Note))
}

// PayInstallment marks one installment paid, then lets the ledger derive
// repaying/settled from the schedule.
func (h *Handler) PayInstallment(ctx context.Context, cmd PayInstallment) (*financing.Financing, error) {
	if _, err := h.financings.MarkInstallmentPaid(ctx, cmd.FinancingID, cmd.InstallmentID); err != nil {
		return nil, err
	}
	return h.financings.SyncRepaymentStatus(ctx, cmd.FinancingID)
}
