package mocks

import (
	"context"
	"sync"
)

// MockPublisher records published events and can be made to fail
type MockPublisher struct {
	mu        sync.Mutex
	Published []PublishCall
	Err       error
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event any
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, PublishCall{Key: key, Event: event})
	return nil
}
