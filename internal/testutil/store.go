package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/checkout-pricing/internal/errors"
)

// SortFunc is a generic sort function type
type SortFunc[T any] func(i, j T) bool

// InMemoryStore implements a generic in-memory store
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewInMemoryStore creates a new InMemoryStore
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

// Create adds a new item to the store, replacing any item with the same key
func (s *InMemoryStore[T]) Create(_ context.Context, key string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item
	return nil
}

// Get retrieves an item by key
func (s *InMemoryStore[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[key]; exists {
		return item, nil
	}

	var zero T
	return zero, ierr.NewErrorf("item %s not found", key).
		WithHintf("%s was not found", key).
		Mark(ierr.ErrNotFound)
}

// List returns every item, ordered by sortFn when given
func (s *InMemoryStore[T]) List(_ context.Context, sortFn SortFunc[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	if sortFn != nil {
		sort.Slice(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}
	return result
}

// Delete removes an item from the store
func (s *InMemoryStore[T]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists {
		return ierr.NewErrorf("item %s not found", key).Mark(ierr.ErrNotFound)
	}
	delete(s.items, key)
	return nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}
