package store

import "context"

// EventStoreInterface defines the interface for audit event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(aggregateID string) []Event
	GetAllEvents() []Event
}

// Publisher fans a stored event out to an external collaborator
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// ReadStoreInterface defines the interface for read model storage
type ReadStoreInterface interface {
	Set(collection, id string, data any)
	Get(collection, id string) (any, bool)
	GetAll(collection string) []any
}
