package pricing

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
)

// SubscriptionChain applies mutators to a SubscriptionPricing in call order.
// The first failure sticks: later links are skipped and Done reports it.
//
//	price, err := s.Chain(ctx).
//		Plan("basic", WithQuantity(2)).
//		Addon("extra-seats").
//		Coupon("WELCOME").
//		Done(nil, nil)
type SubscriptionChain struct {
	pricing *SubscriptionPricing
	ctx     context.Context
	value   any
	err     error
}

// Chain starts a chain bound to s
func (s *SubscriptionPricing) Chain(ctx context.Context) *SubscriptionChain {
	return &SubscriptionChain{pricing: s, ctx: ctx}
}

func (c *SubscriptionChain) then(fn func() (any, error)) *SubscriptionChain {
	if c.err != nil {
		return c
	}
	c.value, c.err = fn()
	return c
}

func (c *SubscriptionChain) Plan(code string, opts ...QuantityOption) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Plan(c.ctx, code, opts...) })
}

func (c *SubscriptionChain) Addon(code string, opts ...QuantityOption) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Addon(c.ctx, code, opts...) })
}

func (c *SubscriptionChain) Coupon(code string) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Coupon(c.ctx, code) })
}

func (c *SubscriptionChain) CouponFrom(cp *coupon.Coupon) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.CouponFrom(cp) })
}

func (c *SubscriptionChain) Currency(code string) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Currency(code) })
}

func (c *SubscriptionChain) GiftCard(code string) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.GiftCard(c.ctx, code) })
}

func (c *SubscriptionChain) Address(a *address.Address) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Address(a) })
}

func (c *SubscriptionChain) ShippingAddress(a *address.Address) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.ShippingAddress(a) })
}

func (c *SubscriptionChain) Tax(t *tax.Tax) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Tax(t) })
}

func (c *SubscriptionChain) Remove(opts RemoveOptions) *SubscriptionChain {
	return c.then(func() (any, error) { return nil, c.pricing.Remove(c.ctx, opts) })
}

func (c *SubscriptionChain) Reset() *SubscriptionChain {
	return c.then(func() (any, error) {
		c.pricing.Reset()
		return nil, nil
	})
}

func (c *SubscriptionChain) Reprice(opts ...RepriceOption) *SubscriptionChain {
	return c.then(func() (any, error) { return c.pricing.Reprice(c.ctx, opts...) })
}

// Done reprices once unless an earlier link failed, then calls onOK or
// onErr. Either callback may be nil.
func (c *SubscriptionChain) Done(onOK func(*SubscriptionPrice), onErr func(error)) (*SubscriptionPrice, error) {
	var price *SubscriptionPrice
	c.then(func() (any, error) {
		var err error
		price, err = c.pricing.Reprice(c.ctx)
		return price, err
	})
	if c.err != nil {
		if onErr != nil {
			onErr(c.err)
		}
		return nil, c.err
	}
	if onOK != nil {
		onOK(price)
	}
	return price, nil
}

// Nodeify hands the outcome to cb. It reprices only when cb is not nil so
// a chain can end without computing a price.
func (c *SubscriptionChain) Nodeify(cb func(*SubscriptionPrice, error)) {
	if cb == nil {
		return
	}
	price, err := c.Done(nil, nil)
	cb(price, err)
}

// Err returns the sticky error of the chain
func (c *SubscriptionChain) Err() error { return c.err }

// Pricing returns the instance the chain is bound to
func (c *SubscriptionChain) Pricing() *SubscriptionPricing { return c.pricing }

// Value returns the result of the last link that ran
func (c *SubscriptionChain) Value() any { return c.value }

// CheckoutChain is the CheckoutPricing counterpart of SubscriptionChain
type CheckoutChain struct {
	pricing *CheckoutPricing
	ctx     context.Context
	value   any
	err     error
}

// Chain starts a chain bound to c
func (c *CheckoutPricing) Chain(ctx context.Context) *CheckoutChain {
	return &CheckoutChain{pricing: c, ctx: ctx}
}

func (c *CheckoutChain) then(fn func() (any, error)) *CheckoutChain {
	if c.err != nil {
		return c
	}
	c.value, c.err = fn()
	return c
}

func (c *CheckoutChain) Subscription(sub *SubscriptionPricing) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Subscription(c.ctx, sub) })
}

func (c *CheckoutChain) Adjustment(opts AdjustmentOptions) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Adjustment(opts) })
}

func (c *CheckoutChain) Coupon(code string) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Coupon(c.ctx, code) })
}

func (c *CheckoutChain) CouponFrom(cp *coupon.Coupon) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.CouponFrom(cp) })
}

func (c *CheckoutChain) Currency(code string) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Currency(code) })
}

func (c *CheckoutChain) GiftCard(code string) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.GiftCard(c.ctx, code) })
}

func (c *CheckoutChain) Address(a *address.Address) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Address(a) })
}

func (c *CheckoutChain) ShippingAddress(a *address.Address) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.ShippingAddress(a) })
}

func (c *CheckoutChain) Tax(t *tax.Tax) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Tax(t) })
}

func (c *CheckoutChain) Remove(opts RemoveOptions) *CheckoutChain {
	return c.then(func() (any, error) { return nil, c.pricing.Remove(c.ctx, opts) })
}

func (c *CheckoutChain) Reset() *CheckoutChain {
	return c.then(func() (any, error) {
		c.pricing.Reset()
		return nil, nil
	})
}

func (c *CheckoutChain) Reprice(opts ...RepriceOption) *CheckoutChain {
	return c.then(func() (any, error) { return c.pricing.Reprice(c.ctx, opts...) })
}

// Done reprices once unless an earlier link failed, then calls onOK or
// onErr. Either callback may be nil.
func (c *CheckoutChain) Done(onOK func(*CheckoutPrice), onErr func(error)) (*CheckoutPrice, error) {
	var price *CheckoutPrice
	c.then(func() (any, error) {
		var err error
		price, err = c.pricing.Reprice(c.ctx)
		return price, err
	})
	if c.err != nil {
		if onErr != nil {
			onErr(c.err)
		}
		return nil, c.err
	}
	if onOK != nil {
		onOK(price)
	}
	return price, nil
}

// Nodeify hands the outcome to cb. It reprices only when cb is not nil.
func (c *CheckoutChain) Nodeify(cb func(*CheckoutPrice, error)) {
	if cb == nil {
		return
	}
	price, err := c.Done(nil, nil)
	cb(price, err)
}

func (c *CheckoutChain) Err() error { return c.err }

func (c *CheckoutChain) Pricing() *CheckoutPricing { return c.pricing }

func (c *CheckoutChain) Value() any { return c.value }
