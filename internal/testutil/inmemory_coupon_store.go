package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
)

// InMemoryCouponStore implements coupon.Repository
type InMemoryCouponStore struct {
	*InMemoryStore[*coupon.Coupon]
	*lookupHooks

	mu        sync.Mutex
	lastQuery coupon.Query
}

// NewInMemoryCouponStore creates a new in-memory coupon store
func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{
		InMemoryStore: NewInMemoryStore[*coupon.Coupon](),
		lookupHooks:   newLookupHooks(),
	}
}

func (s *InMemoryCouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	return s.InMemoryStore.Create(ctx, c.Code, c)
}

func (s *InMemoryCouponStore) Get(ctx context.Context, q coupon.Query) (*coupon.Coupon, error) {
	s.mu.Lock()
	s.lastQuery = q
	s.mu.Unlock()

	if err := s.enter(ctx, q.Code); err != nil {
		return nil, err
	}
	c, err := s.InMemoryStore.Get(ctx, q.Code)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

// LastQuery returns the query of the most recent lookup
func (s *InMemoryCouponStore) LastQuery() coupon.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}
