package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/agri-workflow/internal/command"
	"github.com/example/agri-workflow/internal/config"
	"github.com/example/agri-workflow/internal/domain/financing"
	"github.com/example/agri-workflow/internal/domain/order"
	"github.com/example/agri-workflow/internal/infrastructure/kafka"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/navigation"
	"github.com/example/agri-workflow/internal/notification"
	"github.com/example/agri-workflow/internal/query"
	"github.com/shopspring/decimal"
)

// session runs a scripted buyer/farmer/bank walkthrough against the
// configured audit sink.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Session] Invalid configuration: %v", err)
	}

	inbox := notification.NewInbox()
	notifier := notification.NewHandler(inbox)
	eventStore, closeStore := openEventStore(ctx, cfg, notifier)
	defer closeStore()

	orders := order.NewLedger(eventStore, order.WithMaxRefundAttempts(cfg.Order.MaxRefundAttempts))
	financings := financing.NewLedger(eventStore,
		financing.WithDefaultAnnualRate(cfg.Financing.DefaultAnnualRatePercent),
		financing.WithEarlyPayoffPenalty(cfg.Financing.EarlyPayoffPenaltyPercent),
	)
	commands := command.NewHandler(orders, financings)
	queries := query.NewHandler(orders, financings, nil)

	bus := navigation.NewBus()
	shells := make(map[navigation.Role]*navigation.Shell)
	for _, role := range []navigation.Role{navigation.RoleBuyer, navigation.RoleFarmer, navigation.RoleBank} {
		shell := navigation.NewShell(role)
		defer shell.Attach(bus)()
		shells[role] = shell
	}
	tabs, subRoutes := bus.Subscribers()
	log.Printf("[Session] %d shells attached (%d tab, %d sub-route subscribers)", len(shells), tabs, subRoutes)

	if err := runBuyer(ctx, commands, bus); err != nil {
		log.Fatalf("[Session] Buyer walkthrough failed: %v", err)
	}
	if err := runFinancing(ctx, commands, queries, bus); err != nil {
		log.Fatalf("[Session] Financing walkthrough failed: %v", err)
	}

	checkDate := time.Now().AddDate(0, 2, 1)
	for _, overdue := range queries.OverdueInstallments(checkDate) {
		log.Printf("[Session] On %s installment %d of %s is %d days overdue",
			checkDate.Format(time.DateOnly), overdue.Installment.Sequence, overdue.FinancingID, overdue.DaysOverdue)
	}
	if _, err := notifier.Remind(ctx, financings.List(), checkDate); err != nil {
		log.Printf("[Session] Reminders failed: %v", err)
	}

	for role, shell := range shells {
		log.Printf("[Session] %s shell on tab %q sub-route %q", role, shell.ActiveTab(), shell.SubRoute())
		for _, n := range inbox.For(role) {
			log.Printf("[Session]   %s inbox: %s", role, n.Subject)
		}
	}
	log.Printf("[Session] Recorded %d audit events", len(eventStore.GetAllEvents()))
}

// openEventStore returns the configured audit sink; the in-memory sink
// hands every appended event to notifier
func openEventStore(ctx context.Context, cfg config.Config, notifier *notification.Handler) (store.EventStoreInterface, func()) {
	if cfg.AuditSink == config.SinkMemory {
		log.Println("[Session] Using in-memory audit store")
		return store.NewEventStore(notifier), func() {}
	}

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Session] Failed to connect to PostgreSQL: %v", err)
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	eventStore := store.NewPostgresEventStore(db, producer)
	if err := eventStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("[Session] %v", err)
	}
	log.Printf("[Session] Auditing to PostgreSQL, publishing to %s", cfg.KafkaTopic)
	return eventStore, func() {
		producer.Close()
		db.Close()
	}
}

func runBuyer(ctx context.Context, commands *command.Handler, bus *navigation.Bus) error {
	bus.PublishTabChange("orders")

	o, err := commands.PlaceOrder(ctx, command.PlaceOrder{
		Items:    []order.OrderItem{{ProductID: "rice-5kg", Name: "Rice 5kg", Price: decimal.NewFromInt(50), Quantity: 2}},
		Shipping: &order.ShippingInfo{Name: "Buyer", Phone: "000", Address: "Market St 1", PaymentMethod: "transfer"},
	})
	if err != nil {
		return err
	}
	bus.PublishSubRouteChange("orders", "order-detail?id="+o.ID)

	for _, step := range []func() (*order.Order, error){
		func() (*order.Order, error) {
			return commands.ConfirmPayment(ctx, command.ConfirmPayment{OrderID: o.ID})
		},
		func() (*order.Order, error) {
			return commands.PrepareShipment(ctx, command.PrepareShipment{OrderID: o.ID})
		},
		func() (*order.Order, error) {
			return commands.ShipOrder(ctx, command.ShipOrder{OrderID: o.ID})
		},
		func() (*order.Order, error) {
			return commands.ConfirmReceipt(ctx, command.ConfirmReceipt{OrderID: o.ID})
		},
	} {
		if o, err = step(); err != nil {
			return err
		}
		log.Printf("[Session] Order %s is %s (total %s)", o.ID, o.Status, o.TotalAmount)
	}
	return nil
}

func runFinancing(ctx context.Context, commands *command.Handler, queries *query.Handler, bus *navigation.Bus) error {
	bus.PublishTabChange("finance")

	f, err := commands.ApplyFinancing(ctx, command.ApplyFinancing{
		FarmerID:   "farmer-demo",
		Amount:     decimal.NewFromInt(100000),
		TermMonths: 12,
		Purpose:    "greenhouse expansion",
	})
	if err != nil {
		return err
	}
	bus.PublishSubRouteChange("finance", "financing-detail?id="+f.ID)

	rate := decimal.RequireFromString("5.5")
	if _, err := commands.StartReview(ctx, command.StartReview{FinancingID: f.ID}); err != nil {
		return err
	}
	if _, err := commands.ApproveFinancing(ctx, command.ApproveFinancing{FinancingID: f.ID, AnnualRatePercent: &rate}); err != nil {
		return err
	}
	if _, err := commands.SignContract(ctx, command.SignContract{FinancingID: f.ID}); err != nil {
		return err
	}
	if f, err = commands.DisburseFinancing(ctx, command.DisburseFinancing{FinancingID: f.ID}); err != nil {
		return err
	}
	if f, err = commands.PayInstallment(ctx, command.PayInstallment{
		FinancingID:   f.ID,
		InstallmentID: f.RepaymentSchedule[0].ID,
	}); err != nil {
		return err
	}
	log.Printf("[Session] Financing %s is %s", f.ID, f.Status)

	quote, err := queries.QuoteEarlyPayoff(f.ID)
	if err != nil {
		return err
	}
	log.Printf("[Session] Early payoff: %s payable over %d months, penalty %s, interest saved %s",
		quote.TotalPayable, quote.RemainingMonths, quote.Penalty, quote.InterestSaved)
	return nil
}
