package pricing

import (
	"context"
	"slices"

	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/money"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/flexprice/checkout-pricing/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CheckoutPricing prices several subscriptions and one time adjustments
// together under a single coupon, gift card, address and currency.
//
// Lock order: the checkout never calls into an embedded subscription while
// holding its own lock.
type CheckoutPricing struct {
	base

	items CheckoutItems
	price *CheckoutPrice

	couponToken   uint64
	giftCardToken uint64
}

// NewCheckoutPricing returns an empty checkout pricing
func NewCheckoutPricing(deps Deps) *CheckoutPricing {
	c := &CheckoutPricing{}
	c.init(KindCheckout, types.UUID_PREFIX_CHECKOUT_PRICING, deps)
	c.items.Currency = c.deps.Config.DefaultCurrency
	return c
}

// Subscription embeds sub. sub must have a plan and must not belong to
// another checkout. The checkout currency moves to a currency every
// subscription supports; there must be one.
func (c *CheckoutPricing) Subscription(ctx context.Context, sub *SubscriptionPricing) (*EmbeddedSubscription, error) {
	if sub == nil {
		return nil, c.fail("subscription", invalidOption("subscription is required", nil))
	}
	p := sub.planSnapshot()
	if p == nil {
		return nil, c.fail("subscription", invalidOption("subscription has no plan",
			map[string]any{"subscription_id": sub.ID()}))
	}
	if sub.IsEmbedded() {
		return nil, c.fail("subscription", alreadyEmbedded(sub.ID()))
	}

	currency, err := c.commonCurrency(nil, p.Currencies(), sub.CurrencyCode())
	if err != nil {
		return nil, c.fail("subscription", err)
	}
	if err := sub.attach(c, currency); err != nil {
		return nil, c.fail("subscription", err)
	}

	embedded := &EmbeddedSubscription{sub: sub}
	c.mu.Lock()
	c.items.Subscriptions = append(c.items.Subscriptions, embedded)
	c.mu.Unlock()

	c.emit(events.Set("subscription"), embedded)
	c.applyCurrency(currency, sub)
	return embedded, nil
}

// commonCurrency returns a currency in currencies supported by every
// subscription except skip. The checkout currency wins, then preferred,
// then the first code.
func (c *CheckoutPricing) commonCurrency(skip *SubscriptionPricing, currencies []string, preferred string) (string, error) {
	c.mu.Lock()
	current := c.items.Currency
	subs := slices.Clone(c.items.Subscriptions)
	c.mu.Unlock()

	common := slices.Clone(currencies)
	for _, e := range subs {
		if e.sub == skip {
			continue
		}
		common = lo.Intersect(common, e.currencies())
	}
	if len(common) == 0 {
		return "", ierr.NewError("subscriptions share no currency").
			WithHint("These subscriptions cannot be purchased together").
			WithReportableDetails(map[string]any{"currencies": currencies}).
			Mark(ierr.ErrInvalidSubscriptionCurrency)
	}
	slices.Sort(common)

	switch {
	case slices.Contains(common, current):
		return current, nil
	case preferred != "" && slices.Contains(common, preferred):
		return preferred, nil
	default:
		return common[0], nil
	}
}

// applyCurrency moves the checkout and every subscription but skip to code
func (c *CheckoutPricing) applyCurrency(code string, skip *SubscriptionPricing) {
	c.mu.Lock()
	changed := c.items.Currency != code
	c.items.Currency = code
	dropped := c.dropForeignGiftCard()
	subs := slices.Clone(c.items.Subscriptions)
	c.mu.Unlock()

	for _, e := range subs {
		if e.sub != skip {
			e.sub.setCurrency(code)
		}
	}
	if changed {
		c.emit(events.Set("currency"), code)
	}
	if dropped {
		c.emit(events.Unset("gift_card"), nil)
	}
}

// dropForeignGiftCard clears a gift card in another currency. Callers hold mu.
func (c *CheckoutPricing) dropForeignGiftCard() bool {
	if c.items.GiftCard == nil || c.items.GiftCard.Currency == c.items.Currency {
		return false
	}
	c.items.GiftCard = nil
	c.giftCardToken++
	return true
}

// Adjustment adds a one time charge, or updates the adjustment with the
// same code. New adjustments need an amount and get a generated code when
// none is given.
func (c *CheckoutPricing) Adjustment(opts AdjustmentOptions) (*Adjustment, error) {
	if err := validator.ValidateRequest(opts); err != nil {
		return nil, c.fail("adjustment", err)
	}

	c.mu.Lock()
	if opts.Currency != "" && opts.Currency != c.items.Currency {
		currency := c.items.Currency
		c.mu.Unlock()
		return nil, c.fail("adjustment", ierr.NewErrorf("adjustment in %s, checkout in %s", opts.Currency, currency).
			WithHintf("Adjustments must be in %s", currency).
			WithReportableDetails(map[string]any{"currency": opts.Currency, "checkout_currency": currency}).
			Mark(ierr.ErrInvalidCurrency))
	}

	idx := -1
	if opts.Code != "" {
		_, idx, _ = lo.FindIndexOf(c.items.Adjustments, func(a Adjustment) bool { return a.Code == opts.Code })
	}

	var adj Adjustment
	if idx >= 0 {
		adj = c.items.Adjustments[idx]
	} else {
		if opts.Amount == nil {
			c.mu.Unlock()
			return nil, c.fail("adjustment", invalidOption("adjustment amount is required", nil))
		}
		adj = Adjustment{
			Code:     opts.Code,
			Quantity: 1,
			Currency: c.items.Currency,
		}
		if adj.Code == "" {
			adj.Code = types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ADJUSTMENT)
		}
	}
	if opts.Description != nil {
		adj.Description = *opts.Description
	}
	if opts.Amount != nil {
		adj.Amount = *opts.Amount
	}
	if opts.Quantity != nil {
		adj.Quantity = *opts.Quantity
	}
	if opts.TaxExempt != nil {
		adj.TaxExempt = *opts.TaxExempt
	}
	if opts.TaxCode != nil {
		adj.TaxCode = *opts.TaxCode
	}

	if idx >= 0 {
		c.items.Adjustments[idx] = adj
	} else {
		c.items.Adjustments = append(c.items.Adjustments, adj)
	}
	c.mu.Unlock()

	c.emit(events.Set("adjustment"), adj)
	return &adj, nil
}

// Coupon looks up and applies the coupon with code against every
// subscription plan. It must apply to one of them, or to non plan charges
// when adjustments are present.
func (c *CheckoutPricing) Coupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	token, planCodes, err := c.prepareCoupon()
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, nil
	}

	found, err := c.deps.Coupons.Get(ctx, coupon.Query{Code: code, Plans: planCodes})
	if ierr.IsNotFound(err) {
		c.log.Infow("coupon not found", "coupon_code", code)
		return nil, nil
	}
	if err != nil {
		return nil, c.fail("coupon", err)
	}
	return c.applyCoupon(found, token, planCodes)
}

// CouponFrom applies an already resolved coupon. A nil coupon removes the
// current one.
func (c *CheckoutPricing) CouponFrom(cp *coupon.Coupon) (*coupon.Coupon, error) {
	token, planCodes, err := c.prepareCoupon()
	if err != nil || cp == nil {
		return nil, err
	}
	copied := *cp
	return c.applyCoupon(&copied, token, planCodes)
}

// prepareCoupon clears the current coupon and returns the lookup token
// together with the plan codes of the embedded subscriptions.
func (c *CheckoutPricing) prepareCoupon() (uint64, []string, error) {
	c.mu.Lock()
	if len(c.items.Subscriptions) == 0 && len(c.items.Adjustments) == 0 {
		c.mu.Unlock()
		return 0, nil, c.fail("coupon", missingPlan())
	}
	had := c.items.Coupon != nil
	c.items.Coupon = nil
	c.couponToken++
	token := c.couponToken
	subs := slices.Clone(c.items.Subscriptions)
	c.mu.Unlock()

	if had {
		c.emit(events.Unset("coupon"), nil)
	}
	return token, planCodes(subs), nil
}

func (c *CheckoutPricing) applyCoupon(cp *coupon.Coupon, token uint64, plans []string) (*coupon.Coupon, error) {
	c.mu.Lock()
	if token != c.couponToken {
		c.mu.Unlock()
		c.log.Warnw("discarding superseded coupon lookup", "coupon_code", cp.Code)
		return nil, nil
	}
	applies := lo.SomeBy(plans, cp.AppliesToPlan) ||
		(cp.AppliesToNonPlanCharges && len(c.items.Adjustments) > 0)
	if !applies {
		c.mu.Unlock()
		return nil, c.fail("coupon", invalidCoupon(cp.Code))
	}
	c.items.Coupon = cp
	c.mu.Unlock()

	c.emit(events.Set("coupon"), cp)
	return cp, nil
}

func planCodes(subs []*EmbeddedSubscription) []string {
	codes := make([]string, 0, len(subs))
	for _, e := range subs {
		if p := e.plan(); p != nil {
			codes = append(codes, p.Code)
		}
	}
	return lo.Uniq(codes)
}

// Currency switches the checkout and every subscription to code. Every
// subscription plan must be priced in it.
func (c *CheckoutPricing) Currency(code string) (string, error) {
	parsed, err := types.ParseCurrencyCode(code)
	if err != nil {
		return "", c.fail("currency", invalidOption("currency must be an ISO 4217 code",
			map[string]any{"currency": code}))
	}

	c.mu.Lock()
	if c.items.Currency == parsed {
		c.mu.Unlock()
		return parsed, nil
	}
	subs := slices.Clone(c.items.Subscriptions)
	c.mu.Unlock()

	for _, e := range subs {
		if !slices.Contains(e.currencies(), parsed) {
			return "", c.fail("currency", ierr.NewErrorf("subscription %s is not priced in %s", e.ID(), parsed).
				WithHintf("Not every subscription is available in %s", parsed).
				WithReportableDetails(map[string]any{"currency": parsed, "subscription_id": e.ID()}).
				Mark(ierr.ErrInvalidSubscriptionCurrency))
		}
	}

	c.applyCurrency(parsed, nil)
	return parsed, nil
}

// GiftCard looks up and applies the gift card with code. An unknown code
// leaves no gift card behind without failing.
func (c *CheckoutPricing) GiftCard(ctx context.Context, code string) (*giftcard.GiftCard, error) {
	c.mu.Lock()
	had := c.items.GiftCard != nil
	c.items.GiftCard = nil
	c.giftCardToken++
	token := c.giftCardToken
	c.mu.Unlock()

	if had {
		c.emit(events.Unset("gift_card"), nil)
	}
	if code == "" {
		return nil, nil
	}

	g, err := c.deps.GiftCards.Get(ctx, code)
	if ierr.IsNotFound(err) {
		c.log.Infow("gift card not found", "gift_card_code", code)
		return nil, nil
	}
	if err != nil {
		return nil, c.fail("gift_card", err)
	}

	c.mu.Lock()
	if token != c.giftCardToken {
		c.mu.Unlock()
		c.log.Warnw("discarding superseded gift card lookup", "gift_card_code", code)
		return nil, nil
	}
	if g.Currency != c.items.Currency {
		currency := c.items.Currency
		c.mu.Unlock()
		return nil, c.fail("gift_card", giftCardMismatch(g, currency))
	}
	c.items.GiftCard = g
	c.mu.Unlock()

	c.emit(events.Set("gift_card"), g)
	return g, nil
}

// Address sets the billing address. Nil removes it.
func (c *CheckoutPricing) Address(a *address.Address) (*address.Address, error) {
	c.mu.Lock()
	c.items.Address = a.Clone()
	c.mu.Unlock()

	emitAddress(&c.base, "address", a)
	return a, nil
}

// ShippingAddress sets the shipping address. Nil removes it.
func (c *CheckoutPricing) ShippingAddress(a *address.Address) (*address.Address, error) {
	c.mu.Lock()
	c.items.ShippingAddress = a.Clone()
	c.mu.Unlock()

	emitAddress(&c.base, "shipping_address", a)
	return a, nil
}

// Tax sets caller provided tax information. Nil removes it.
func (c *CheckoutPricing) Tax(t *tax.Tax) (*tax.Tax, error) {
	if err := validateTax(t); err != nil {
		return nil, c.fail("tax", err)
	}

	c.mu.Lock()
	c.items.Tax = t.Clone()
	c.mu.Unlock()

	if t == nil {
		c.emit(events.Unset("tax"), nil)
		return nil, nil
	}
	c.emit(events.Set("tax"), t)
	return t, nil
}

// Remove clears one item. Subscriptions are selected by id and adjustments
// by code.
func (c *CheckoutPricing) Remove(ctx context.Context, opts RemoveOptions) error {
	switch opts.Item {
	case ItemCurrency:
		return c.fail("remove", unremovable(opts.Item))
	case ItemCoupon:
		c.mu.Lock()
		had := c.items.Coupon != nil
		c.items.Coupon = nil
		c.couponToken++
		c.mu.Unlock()
		if had {
			c.emit(events.Unset("coupon"), nil)
		}
		return nil
	case ItemGiftCard:
		_, err := c.GiftCard(ctx, "")
		return err
	case ItemAddress:
		_, err := c.Address(nil)
		return err
	case ItemShippingAddress:
		_, err := c.ShippingAddress(nil)
		return err
	case ItemTax:
		_, err := c.Tax(nil)
		return err
	case ItemSubscription:
		return c.removeSubscription(opts)
	case ItemAdjustment:
		return c.removeAdjustment(opts)
	default:
		return c.fail("remove", invalidItem(opts))
	}
}

func (c *CheckoutPricing) removeSubscription(opts RemoveOptions) error {
	c.mu.Lock()
	e, idx, ok := lo.FindIndexOf(c.items.Subscriptions, func(e *EmbeddedSubscription) bool {
		return e.ID() == opts.Code
	})
	if !ok {
		c.mu.Unlock()
		return c.fail("remove", invalidItem(opts))
	}
	c.items.Subscriptions = slices.Delete(c.items.Subscriptions, idx, idx+1)
	c.mu.Unlock()

	e.sub.detach()
	c.emit(events.Unset("subscription"), e.ID())
	return nil
}

func (c *CheckoutPricing) removeAdjustment(opts RemoveOptions) error {
	c.mu.Lock()
	_, idx, ok := lo.FindIndexOf(c.items.Adjustments, func(a Adjustment) bool { return a.Code == opts.Code })
	if !ok {
		c.mu.Unlock()
		return c.fail("remove", invalidItem(opts))
	}
	c.items.Adjustments = slices.Delete(c.items.Adjustments, idx, idx+1)
	c.mu.Unlock()

	c.emit(events.Unset("adjustment"), opts.Code)
	return nil
}

// Reset releases every subscription and drops all items and the last price
func (c *CheckoutPricing) Reset() {
	c.mu.Lock()
	subs := c.items.Subscriptions
	c.items = CheckoutItems{Currency: c.deps.Config.DefaultCurrency}
	c.price = nil
	c.couponToken++
	c.giftCardToken++
	c.mu.Unlock()

	for _, e := range subs {
		e.sub.detach()
	}
}

// Reprice computes the checkout price. Embedded subscriptions are repriced
// internally first.
func (c *CheckoutPricing) Reprice(ctx context.Context, opts ...RepriceOption) (*CheckoutPrice, error) {
	o := applyReprice(opts)

	c.mu.Lock()
	items := c.items.Clone()
	c.mu.Unlock()

	price := newCheckoutCalculations(c, items).run(ctx)

	c.mu.Lock()
	prev := c.price
	c.price = price
	c.mu.Unlock()

	changed := !price.Equal(prev)
	c.log.Debugw("checkout repriced",
		"subscriptions", len(items.Subscriptions),
		"adjustments", len(items.Adjustments),
		"currency", price.Currency.Code,
		"total_now", price.Now.Total,
		"changed", changed,
		"internal", o.internal,
	)
	c.emit(events.Change, price)
	if changed && !o.internal {
		c.emit(events.ChangeExternal, price)
	}
	return price, nil
}

// Price returns the last computed price, nil before the first reprice. The
// result must not be modified.
func (c *CheckoutPricing) Price() *CheckoutPrice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.price
}

// Items returns a copy of the current items
func (c *CheckoutPricing) Items() CheckoutItems {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Clone()
}

// TotalNow returns the amount due today of the last price
func (c *CheckoutPricing) TotalNow() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.price == nil {
		return money.Decimalize(decimal.Zero, c.digits())
	}
	return c.price.Now.Total
}

// SubtotalPreDiscountNow returns the subtotal due today before the discount
func (c *CheckoutPricing) SubtotalPreDiscountNow() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.price == nil {
		return money.Decimalize(decimal.Zero, c.digits())
	}
	return money.Decimalize(amount(c.price.Now.Subtotal).Add(amount(c.price.Now.Discount)), c.digits())
}

func (c *CheckoutPricing) CurrencyCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Currency
}

func (c *CheckoutPricing) CurrencySymbol() string {
	return types.GetCurrencySymbol(c.CurrencyCode())
}
