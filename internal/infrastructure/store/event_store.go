package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one audit record produced by a ledger mutation
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// EventStore keeps the session's audit trail in memory and optionally
// forwards every event to a Publisher.
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	all       []Event            // append order across aggregates
	publisher Publisher
	clock     func() time.Time
}

func NewEventStore(publisher Publisher) *EventStore {
	return &EventStore{
		events:    make(map[string][]Event),
		publisher: publisher,
		clock:     time.Now,
	}
}

// WithClock overrides the event timestamp source for tests
func (es *EventStore) WithClock(clock func() time.Time) *EventStore {
	es.clock = clock
	return es
}

// Append records an event. The event is published before it is committed so a
// publish failure leaves the store unchanged.
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     es.clock(),
		Version:       len(es.events[aggregateID]) + 1,
	}

	if es.publisher != nil {
		if err := es.publisher.Publish(ctx, aggregateID, event); err != nil {
			return nil, fmt.Errorf("failed to publish %s: %w", eventType, err)
		}
	}

	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.all = append(es.all, event)
	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(aggregateID string) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return append([]Event(nil), es.events[aggregateID]...)
}

// GetAllEvents returns every event in append order
func (es *EventStore) GetAllEvents() []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return append([]Event(nil), es.all...)
}
