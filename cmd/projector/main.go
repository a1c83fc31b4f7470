package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/agri-workflow/internal/config"
	"github.com/example/agri-workflow/internal/infrastructure/kafka"
	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/example/agri-workflow/internal/projection"
	"github.com/example/agri-workflow/internal/readmodel"
)

const statsInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Projector] Invalid configuration: %v", err)
	}

	log.Println("[Projector] ========================================")
	log.Println("[Projector] Agri Workflow - Audit Projector")
	log.Println("[Projector] ========================================")
	log.Printf("[Projector] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Projector] Topic: %s", cfg.KafkaTopic)
	log.Printf("[Projector] Group: %s", cfg.KafkaConsumerGroup)

	readStore := store.NewReadStore()
	projector := projection.NewProjector(readStore)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaConsumerGroup)
	defer consumer.Close()

	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Printf("[Projector] Read models: %d orders, %d financings, %d farmers",
					readStore.Count(readmodel.CollectionOrders),
					readStore.Count(readmodel.CollectionFinancings),
					readStore.Count(readmodel.CollectionFarmerSummaries))
			}
		}
	}()

	log.Println("[Projector] Starting event consumer...")
	if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Projector] Consumer error: %v", err)
	}

	log.Println("[Projector] Shutting down...")
}
