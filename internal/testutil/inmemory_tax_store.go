package testutil

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/tax"
)

// InMemoryTaxStore implements tax.Repository. Rates are keyed by country and
// tax code; lookups for an unknown situation return no rates. Hooks are keyed
// by tax code.
type InMemoryTaxStore struct {
	*InMemoryStore[[]tax.Rate]
	*lookupHooks
}

// NewInMemoryTaxStore creates a new in-memory tax store
func NewInMemoryTaxStore() *InMemoryTaxStore {
	return &InMemoryTaxStore{
		InMemoryStore: NewInMemoryStore[[]tax.Rate](),
		lookupHooks:   newLookupHooks(),
	}
}

func taxKey(country, taxCode string) string {
	return country + "|" + taxCode
}

// SetRates registers the rates returned for country and taxCode
func (s *InMemoryTaxStore) SetRates(country, taxCode string, rates ...tax.Rate) {
	_ = s.InMemoryStore.Create(context.Background(), taxKey(country, taxCode), rates)
}

func (s *InMemoryTaxStore) Rates(ctx context.Context, q tax.Query) ([]tax.Rate, error) {
	if err := s.enter(ctx, q.TaxCode); err != nil {
		return nil, err
	}
	rates, err := s.InMemoryStore.Get(ctx, taxKey(q.Country, q.TaxCode))
	if err != nil {
		return []tax.Rate{}, nil
	}
	return append([]tax.Rate(nil), rates...), nil
}
