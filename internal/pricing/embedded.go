package pricing

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
)

// EmbeddedSubscription is a subscription priced as part of a checkout. The
// checkout owns its coupon, gift card, addresses, tax and currency.
type EmbeddedSubscription struct {
	sub *SubscriptionPricing
}

// ID is the id of the wrapped subscription pricing
func (e *EmbeddedSubscription) ID() string { return e.sub.ID() }

// Subscription returns the wrapped subscription pricing. Plan and add-on
// changes go through it.
func (e *EmbeddedSubscription) Subscription() *SubscriptionPricing { return e.sub }

// Price returns the last price computed for the subscription
func (e *EmbeddedSubscription) Price() *SubscriptionPrice { return e.sub.Price() }

func (e *EmbeddedSubscription) plan() *plan.Plan { return e.sub.planSnapshot() }

func (e *EmbeddedSubscription) currencies() []string {
	p := e.plan()
	if p == nil {
		return nil
	}
	return p.Currencies()
}

func (e *EmbeddedSubscription) setCoupon(c *coupon.Coupon) { e.sub.setCoupon(c) }

func (e *EmbeddedSubscription) reprice(ctx context.Context) (*SubscriptionPrice, error) {
	return e.sub.Reprice(ctx, WithInternal())
}
