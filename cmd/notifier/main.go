package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/agri-workflow/internal/config"
	"github.com/example/agri-workflow/internal/email"
	"github.com/example/agri-workflow/internal/infrastructure/kafka"
	"github.com/example/agri-workflow/internal/notification"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Notifier] Invalid configuration: %v", err)
	}

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Agri Workflow - Role Notifier")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Notifier] Topic: %s", cfg.KafkaTopic)

	var sender notification.Sender
	if cfg.Notifier.SMTPHost != "" {
		log.Printf("[Notifier] SMTP: %s:%s (%d mailboxes)", cfg.Notifier.SMTPHost, cfg.Notifier.SMTPPort, len(cfg.Notifier.Recipients))
		sender = email.NewService(cfg.Notifier.SMTPHost, cfg.Notifier.SMTPPort, cfg.Notifier.From, cfg.Notifier.Recipients)
	} else {
		log.Println("[Notifier] No SMTP host configured, keeping notifications in memory")
		sender = notification.NewInbox()
	}

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "notifier")
	defer consumer.Close()

	handler := notification.NewHandler(sender)

	log.Println("[Notifier] Starting event consumer...")
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Notifier] Consumer error: %v", err)
	}

	log.Println("[Notifier] Shutting down...")
}
