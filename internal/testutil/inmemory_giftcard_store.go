package testutil

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
)

// InMemoryGiftCardStore implements giftcard.Repository
type InMemoryGiftCardStore struct {
	*InMemoryStore[*giftcard.GiftCard]
	*lookupHooks
}

// NewInMemoryGiftCardStore creates a new in-memory gift card store
func NewInMemoryGiftCardStore() *InMemoryGiftCardStore {
	return &InMemoryGiftCardStore{
		InMemoryStore: NewInMemoryStore[*giftcard.GiftCard](),
		lookupHooks:   newLookupHooks(),
	}
}

func (s *InMemoryGiftCardStore) Create(ctx context.Context, g *giftcard.GiftCard) error {
	return s.InMemoryStore.Create(ctx, g.Code, g)
}

func (s *InMemoryGiftCardStore) Get(ctx context.Context, code string) (*giftcard.GiftCard, error) {
	if err := s.enter(ctx, code); err != nil {
		return nil, err
	}
	g, err := s.InMemoryStore.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	cp := *g
	return &cp, nil
}
