package testutil

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/plan"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
	*lookupHooks
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
		lookupHooks:   newLookupHooks(),
	}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	return s.InMemoryStore.Create(ctx, p.Code, p)
}

// Get returns a copy of the stored plan
func (s *InMemoryPlanStore) Get(ctx context.Context, code string) (*plan.Plan, error) {
	if err := s.enter(ctx, code); err != nil {
		return nil, err
	}
	p, err := s.InMemoryStore.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}
