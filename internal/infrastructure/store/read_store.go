package store

import (
	"maps"
	"slices"
	"sync"
)

// ReadStore is an in-memory read model store keyed by collection and id
type ReadStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]any
}

var _ ReadStoreInterface = (*ReadStore)(nil)

func NewReadStore() *ReadStore {
	return &ReadStore{collections: make(map[string]map[string]any)}
}

func (rs *ReadStore) Set(collection, id string, model any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rows, ok := rs.collections[collection]
	if !ok {
		rows = make(map[string]any)
		rs.collections[collection] = rows
	}
	rows[id] = model
}

func (rs *ReadStore) Get(collection, id string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	model, ok := rs.collections[collection][id]
	return model, ok
}

// GetAll returns the collection ordered by id
func (rs *ReadStore) GetAll(collection string) []any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows := rs.collections[collection]
	models := make([]any, 0, len(rows))
	for _, id := range slices.Sorted(maps.Keys(rows)) {
		models = append(models, rows[id])
	}
	return models
}

// Count returns the number of read models in a collection
func (rs *ReadStore) Count(collection string) int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.collections[collection])
}

// Lookup fetches one read model as T; a model of another type counts as missing
func Lookup[T any](rs ReadStoreInterface, collection, id string) (T, bool) {
	model, ok := rs.Get(collection, id)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := model.(T)
	return typed, ok
}

// All returns every read model of type T in a collection, ordered by id
func All[T any](rs ReadStoreInterface, collection string) []T {
	models := rs.GetAll(collection)
	typed := make([]T, 0, len(models))
	for _, model := range models {
		if t, ok := model.(T); ok {
			typed = append(typed, t)
		}
	}
	return typed
}
