package aggregate

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/example/agri-workflow/internal/infrastructure/store"
)

// Aggregate defines the interface for ledger entities rebuilt from audit events
type Aggregate interface {
	GetID() string
	GetVersion() int
	ApplyEvent(store.Event) error
}

// Replay rebuilds every aggregate of aggregateType found in events.
// Events are applied per aggregate in version order; aggregates come back in
// the order their first event appears in the input.
func Replay[T Aggregate](
	events []store.Event,
	aggregateType string,
	newAggregate func() T,
) ([]T, error) {
	grouped := make(map[string][]store.Event)
	var ids []string
	for _, event := range events {
		if event.AggregateType != aggregateType {
			continue
		}
		if _, seen := grouped[event.AggregateID]; !seen {
			ids = append(ids, event.AggregateID)
		}
		grouped[event.AggregateID] = append(grouped[event.AggregateID], event)
	}

	result := make([]T, 0, len(ids))
	for _, id := range ids {
		history := grouped[id]
		slices.SortStableFunc(history, func(a, b store.Event) int {
			return a.Version - b.Version
		})

		agg := newAggregate()
		for _, event := range history {
			if err := agg.ApplyEvent(event); err != nil {
				return nil, fmt.Errorf("failed to apply event %s to %s: %w", event.ID, id, err)
			}
		}
		result = append(result, agg)
	}
	return result, nil
}

// Decode unmarshals the payload of an audit event
func Decode[T any](event store.Event) (T, error) {
	var data T
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return data, fmt.Errorf("failed to decode %s: %w", event.EventType, err)
	}
	return data, nil
}
