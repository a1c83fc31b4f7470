package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/agri-workflow/internal/config"
	"github.com/example/agri-workflow/internal/domain/financing"
	"github.com/example/agri-workflow/internal/domain/order"
	"github.com/example/agri-workflow/internal/infrastructure/kafka"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/query"
)

func main() {
	republish := flag.Bool("republish", false, "publish every stored event to the audit topic again")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Replay] Invalid configuration: %v", err)
	}

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Replay] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("[Replay] Connected to PostgreSQL (audit log)")

	eventStore := store.NewPostgresEventStore(db, nil)
	if err := eventStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("[Replay] %v", err)
	}

	events := eventStore.GetAllEvents()
	log.Printf("[Replay] Loaded %d events", len(events))

	orders := order.NewLedger(eventStore, order.WithMaxRefundAttempts(cfg.Order.MaxRefundAttempts))
	financings := financing.NewLedger(eventStore,
		financing.WithDefaultAnnualRate(cfg.Financing.DefaultAnnualRatePercent),
		financing.WithEarlyPayoffPenalty(cfg.Financing.EarlyPayoffPenaltyPercent),
	)
	if err := orders.Restore(eventStore.GetEventsByType(order.AggregateType)); err != nil {
		log.Fatalf("[Replay] Failed to restore orders: %v", err)
	}
	if err := financings.Restore(eventStore.GetEventsByType(financing.AggregateType)); err != nil {
		log.Fatalf("[Replay] Failed to restore financings: %v", err)
	}

	queries := query.NewHandler(orders, financings, nil)
	byStatus := make(map[order.Status]int)
	for _, o := range queries.ListOrders(order.StatusAll, order.DateRange{}) {
		byStatus[o.Status]++
	}
	log.Printf("[Replay] Orders by status: %v", byStatus)
	log.Printf("[Replay] Refunds awaiting platform: %d", len(queries.RefundQueue(order.ActorPlatform)))

	portfolio := queries.Portfolio()
	log.Printf("[Replay] Financings by status: %v", portfolio.ByStatus)
	log.Printf("[Replay] Disbursed %s, outstanding principal %s", portfolio.Disbursed, portfolio.OutstandingPrincipal)

	if !*republish {
		return
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	for i, event := range events {
		if err := producer.Publish(ctx, event.AggregateID, event); err != nil {
			log.Fatalf("[Replay] Republish stopped at event %d of %d: %v", i+1, len(events), err)
		}
	}
	log.Printf("[Replay] Republished %d events to %s", len(events), cfg.KafkaTopic)
}
