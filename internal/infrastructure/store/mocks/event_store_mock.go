package mocks

import (
	"context"
	"sync"

	"github.com/example/agri-workflow/internal/infrastructure/store"
)

// MockEventStore wraps an in-memory store.EventStore, recording every Append
// and optionally failing it.
type MockEventStore struct {
	inner *store.EventStore

	mu          sync.Mutex
	AppendCalls []AppendCall
	// AppendErr makes every Append fail without storing anything
	AppendErr error
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID   string
	AggregateType string
	EventType     string
	Data          any
}

var _ store.EventStoreInterface = (*MockEventStore)(nil)

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{inner: store.NewEventStore(nil)}
}

func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
	})
	failure := m.AppendErr
	m.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	return m.inner.Append(ctx, aggregateID, aggregateType, eventType, data)
}

func (m *MockEventStore) GetEvents(aggregateID string) []store.Event {
	return m.inner.GetEvents(aggregateID)
}

func (m *MockEventStore) GetAllEvents() []store.Event {
	return m.inner.GetAllEvents()
}

// EventTypes lists the event types stored so far, in order
func (m *MockEventStore) EventTypes() []string {
	all := m.inner.GetAllEvents()
	types := make([]string, 0, len(all))
	for _, e := range all {
		types = append(types, e.EventType)
	}
	return types
}
