package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/agri-workflow/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives the audit events of both ledgers
const DefaultTopic = "agri-workflow-events"

const (
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer fans stored audit events out to a topic. It implements store.Publisher.
type Producer struct {
	writer messageWriter
	clock  func() time.Time
}

var _ store.Publisher = (*Producer)(nil)

func NewProducer(brokers []string, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keep one aggregate on one partition
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(writer)
}

func newProducer(w messageWriter) *Producer {
	return &Producer{writer: w, clock: time.Now}
}

// Publish writes event as JSON keyed by key, usually the aggregate id
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", key, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  p.clock(),
	}
	if e, ok := event.(store.Event); ok {
		msg.Headers = []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.EventType)},
			{Key: HeaderAggregateType, Value: []byte(e.AggregateType)},
		}
		msg.Time = e.Timestamp
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message %s: %w", key, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
