package pricing

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/money"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// SubscriptionPricing prices a single subscription. Mutators validate their
// input, update the items and fire set/unset events; only Reprice computes
// a new price.
//
// When the subscription is embedded in a checkout, the coupon, gift card,
// addresses, tax and currency belong to the checkout and the corresponding
// mutators are forwarded to it.
type SubscriptionPricing struct {
	base

	items SubscriptionItems
	price *SubscriptionPrice

	planToken     uint64
	couponToken   uint64
	giftCardToken uint64

	checkout *CheckoutPricing
}

// NewSubscriptionPricing returns an empty subscription pricing
func NewSubscriptionPricing(deps Deps) *SubscriptionPricing {
	s := &SubscriptionPricing{}
	s.init(KindSubscription, types.UUID_PREFIX_SUBSCRIPTION_PRICING, deps)
	s.items.Currency = s.deps.Config.DefaultCurrency
	return s
}

// Plan selects the plan with code. The quantity defaults to the quantity of
// the current plan, or 1. Selecting the current plan again only updates the
// quantity. Every call supersedes lookups still in flight; a superseded
// lookup is discarded without events and returns a nil plan.
func (s *SubscriptionPricing) Plan(ctx context.Context, code string, opts ...QuantityOption) (*plan.Plan, error) {
	o := applyQuantity(opts)
	if code == "" {
		return nil, s.fail("plan", invalidOption("plan code is required", nil))
	}
	if o.set && o.quantity < 0 {
		return nil, s.fail("plan", invalidOption("plan quantity must not be negative",
			map[string]any{"quantity": o.quantity}))
	}

	s.mu.Lock()
	s.planToken++
	token := s.planToken
	if current := s.items.Plan; current != nil && current.Code == code {
		if o.set {
			current.Quantity = o.quantity
		}
		p := current.Clone()
		s.mu.Unlock()
		s.emit(events.Set("plan"), p)
		return p, nil
	}
	quantity := 1
	if o.set {
		quantity = o.quantity
	} else if s.items.Plan != nil {
		quantity = s.items.Plan.Quantity
	}
	checkout := s.checkout
	s.mu.Unlock()

	found, err := s.deps.Plans.Get(ctx, code)
	if s.planSuperseded(token) {
		s.log.Warnw("discarding superseded plan lookup", "plan_code", code)
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("plan", err)
	}
	p := found.Clone()
	p.Quantity = quantity

	var currency string
	if checkout != nil {
		currency, err = checkout.commonCurrency(s, p.Currencies(), "")
	} else {
		s.mu.Lock()
		current := s.items.Currency
		s.mu.Unlock()
		currency, err = s.currencyFor(p, current)
	}
	if err != nil {
		if s.planSuperseded(token) {
			s.log.Warnw("discarding superseded plan lookup", "plan_code", code)
			return nil, nil
		}
		return nil, s.fail("plan", err)
	}

	s.mu.Lock()
	if token != s.planToken {
		s.mu.Unlock()
		s.log.Warnw("discarding superseded plan lookup", "plan_code", code)
		return nil, nil
	}
	prevCoupon := s.items.Coupon
	currencyChanged := s.items.Currency != currency
	s.items.Plan = p
	s.items.Currency = currency
	s.items.Addons = lo.Filter(s.items.Addons, func(a AddonSelection, _ int) bool {
		_, ok := p.AddOn(a.Code)
		return ok
	})
	droppedGiftCard := s.dropForeignGiftCard()
	result := p.Clone()
	s.mu.Unlock()

	s.emit(events.Set("plan"), result)
	if currencyChanged {
		s.emit(events.Set("currency"), currency)
	}
	if droppedGiftCard {
		s.emit(events.Unset("gift_card"), nil)
	}
	if checkout != nil {
		checkout.applyCurrency(currency, s)
	} else if prevCoupon != nil {
		s.reapplyCoupon(ctx, prevCoupon.Code, code)
	}
	return result, nil
}

// planSuperseded reports whether a newer Plan, Remove or Reset call
// replaced the lookup holding token
func (s *SubscriptionPricing) planSuperseded(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token != s.planToken
}

// currencyFor picks the currency a newly selected plan is priced in. The
// current currency wins, then the configured default, then the first code.
func (s *SubscriptionPricing) currencyFor(p *plan.Plan, current string) (string, error) {
	if current != "" && p.SupportsCurrency(current) {
		return current, nil
	}
	if p.SupportsCurrency(s.deps.Config.DefaultCurrency) {
		return s.deps.Config.DefaultCurrency, nil
	}
	codes := p.Currencies()
	if len(codes) == 0 {
		return "", ierr.NewErrorf("plan %s has no price", p.Code).
			WithHint("The plan is not priced in any currency").
			Mark(ierr.ErrInvalidCurrency)
	}
	return codes[0], nil
}

// dropForeignGiftCard clears a gift card in another currency. Callers hold mu.
func (s *SubscriptionPricing) dropForeignGiftCard() bool {
	if s.items.GiftCard == nil || s.items.GiftCard.Currency == s.items.Currency {
		return false
	}
	s.items.GiftCard = nil
	s.giftCardToken++
	return true
}

// reapplyCoupon looks a coupon up again against a new plan and quietly
// drops it when it no longer applies.
func (s *SubscriptionPricing) reapplyCoupon(ctx context.Context, code, planCode string) {
	s.mu.Lock()
	s.couponToken++
	token := s.couponToken
	s.mu.Unlock()

	c, err := s.deps.Coupons.Get(ctx, coupon.Query{Code: code, Plans: []string{planCode}})
	keep := err == nil && c.AppliesToPlan(planCode)

	s.mu.Lock()
	if token != s.couponToken {
		s.mu.Unlock()
		return
	}
	if keep {
		s.items.Coupon = c
	} else {
		s.items.Coupon = nil
	}
	s.mu.Unlock()

	if keep {
		s.emit(events.Set("coupon"), c)
		return
	}
	s.log.Infow("dropping coupon not valid for plan", "coupon_code", code, "plan_code", planCode, "error", err)
	s.emit(events.Unset("coupon"), nil)
}

// Addon selects the add-on with code on the current plan. The quantity
// defaults to the current selection, then the catalog default, then 1. A
// quantity of zero removes the add-on.
func (s *SubscriptionPricing) Addon(ctx context.Context, code string, opts ...QuantityOption) (*AddonSelection, error) {
	o := applyQuantity(opts)
	if o.set && o.quantity < 0 {
		return nil, s.fail("addon", invalidOption("add-on quantity must not be negative",
			map[string]any{"quantity": o.quantity}))
	}

	s.mu.Lock()
	if s.items.Plan == nil {
		s.mu.Unlock()
		return nil, s.fail("addon", missingPlan())
	}
	catalog, ok := s.items.Plan.AddOn(code)
	if !ok {
		planCode := s.items.Plan.Code
		s.mu.Unlock()
		return nil, s.fail("addon", ierr.NewErrorf("add-on %s not found on plan %s", code, planCode).
			WithHintf("Add-on %s is not available for this plan", code).
			WithReportableDetails(map[string]any{"addon_code": code, "plan_code": planCode}).
			Mark(ierr.ErrInvalidAddon))
	}

	quantity := 1
	existing := s.items.addonQuantity(code)
	switch {
	case o.set:
		quantity = o.quantity
	case existing > 0:
		quantity = existing
	case catalog.Quantity > 0:
		quantity = catalog.Quantity
	}

	s.items.Addons = lo.Reject(s.items.Addons, func(a AddonSelection, _ int) bool { return a.Code == code })
	sel := AddonSelection{Code: code, Quantity: quantity}
	if quantity > 0 {
		s.items.Addons = append(s.items.Addons, sel)
	}
	s.mu.Unlock()

	if quantity == 0 {
		s.emit(events.Unset("addon"), code)
		return nil, nil
	}
	s.emit(events.Set("addon"), sel)
	return &sel, nil
}

// Coupon looks up and applies the coupon with code. An empty code only
// removes the current coupon and an unknown code leaves no coupon behind
// without failing.
func (s *SubscriptionPricing) Coupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.Coupon(ctx, code)
	}
	if s.items.Plan == nil {
		s.mu.Unlock()
		return nil, s.fail("coupon", missingPlan())
	}
	planCode := s.items.Plan.Code
	token, hadCoupon := s.clearCoupon()
	s.mu.Unlock()

	if hadCoupon {
		s.emit(events.Unset("coupon"), nil)
	}
	if code == "" {
		return nil, nil
	}

	c, err := s.deps.Coupons.Get(ctx, coupon.Query{Code: code, Plans: []string{planCode}})
	if ierr.IsNotFound(err) {
		s.log.Infow("coupon not found", "coupon_code", code)
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("coupon", err)
	}
	return s.applyCoupon(c, token)
}

// CouponFrom applies an already resolved coupon. A nil coupon removes the
// current one.
func (s *SubscriptionPricing) CouponFrom(c *coupon.Coupon) (*coupon.Coupon, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.CouponFrom(c)
	}
	if s.items.Plan == nil {
		s.mu.Unlock()
		return nil, s.fail("coupon", missingPlan())
	}
	token, hadCoupon := s.clearCoupon()
	s.mu.Unlock()

	if hadCoupon {
		s.emit(events.Unset("coupon"), nil)
	}
	if c == nil {
		return nil, nil
	}
	cp := *c
	return s.applyCoupon(&cp, token)
}

// clearCoupon drops the coupon and supersedes pending lookups. Callers hold mu.
func (s *SubscriptionPricing) clearCoupon() (uint64, bool) {
	had := s.items.Coupon != nil
	s.items.Coupon = nil
	s.couponToken++
	return s.couponToken, had
}

func (s *SubscriptionPricing) applyCoupon(c *coupon.Coupon, token uint64) (*coupon.Coupon, error) {
	s.mu.Lock()
	if token != s.couponToken {
		s.mu.Unlock()
		s.log.Warnw("discarding superseded coupon lookup", "coupon_code", c.Code)
		return nil, nil
	}
	if s.items.Plan == nil || !c.AppliesToPlan(s.items.Plan.Code) {
		s.mu.Unlock()
		return nil, s.fail("coupon", invalidCoupon(c.Code))
	}
	s.items.Coupon = c
	s.mu.Unlock()

	s.emit(events.Set("coupon"), c)
	return c, nil
}

// setCoupon replaces the coupon without validation. Checkouts use it to push
// their coupon down onto embedded subscriptions.
func (s *SubscriptionPricing) setCoupon(c *coupon.Coupon) {
	s.mu.Lock()
	s.items.Coupon = c
	s.couponToken++
	s.mu.Unlock()
}

// Currency switches the subscription to code. The current plan must be
// priced in it.
func (s *SubscriptionPricing) Currency(code string) (string, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.Currency(code)
	}
	s.mu.Unlock()

	parsed, err := types.ParseCurrencyCode(code)
	if err != nil {
		return "", s.fail("currency", invalidOption("currency must be an ISO 4217 code",
			map[string]any{"currency": code}))
	}

	s.mu.Lock()
	if s.items.Currency == parsed {
		s.mu.Unlock()
		return parsed, nil
	}
	if s.items.Plan != nil && !s.items.Plan.SupportsCurrency(parsed) {
		planCode := s.items.Plan.Code
		s.mu.Unlock()
		return "", s.fail("currency", ierr.NewErrorf("plan %s is not priced in %s", planCode, parsed).
			WithHintf("The plan is not available in %s", parsed).
			WithReportableDetails(map[string]any{"currency": parsed, "plan_code": planCode}).
			Mark(ierr.ErrInvalidCurrency))
	}
	s.items.Currency = parsed
	dropped := s.dropForeignGiftCard()
	s.mu.Unlock()

	s.emit(events.Set("currency"), parsed)
	if dropped {
		s.emit(events.Unset("gift_card"), nil)
	}
	return parsed, nil
}

// setCurrency is used by a checkout after it checked the plan supports code
func (s *SubscriptionPricing) setCurrency(code string) {
	s.mu.Lock()
	changed := s.items.Currency != code
	s.items.Currency = code
	s.mu.Unlock()

	if changed {
		s.emit(events.Set("currency"), code)
	}
}

// GiftCard looks up and applies the gift card with code. An unknown code
// leaves no gift card behind without failing.
func (s *SubscriptionPricing) GiftCard(ctx context.Context, code string) (*giftcard.GiftCard, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.GiftCard(ctx, code)
	}
	had := s.items.GiftCard != nil
	s.items.GiftCard = nil
	s.giftCardToken++
	token := s.giftCardToken
	s.mu.Unlock()

	if had {
		s.emit(events.Unset("gift_card"), nil)
	}
	if code == "" {
		return nil, nil
	}

	g, err := s.deps.GiftCards.Get(ctx, code)
	if ierr.IsNotFound(err) {
		s.log.Infow("gift card not found", "gift_card_code", code)
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("gift_card", err)
	}

	s.mu.Lock()
	if token != s.giftCardToken {
		s.mu.Unlock()
		s.log.Warnw("discarding superseded gift card lookup", "gift_card_code", code)
		return nil, nil
	}
	if g.Currency != s.items.Currency {
		currency := s.items.Currency
		s.mu.Unlock()
		return nil, s.fail("gift_card", giftCardMismatch(g, currency))
	}
	s.items.GiftCard = g
	s.mu.Unlock()

	s.emit(events.Set("gift_card"), g)
	return g, nil
}

// Address sets the billing address. Nil removes it.
func (s *SubscriptionPricing) Address(a *address.Address) (*address.Address, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.Address(a)
	}
	s.items.Address = a.Clone()
	s.mu.Unlock()

	emitAddress(&s.base, "address", a)
	return a, nil
}

// ShippingAddress sets the shipping address. It takes precedence over the
// billing address for tax. Nil removes it.
func (s *SubscriptionPricing) ShippingAddress(a *address.Address) (*address.Address, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.ShippingAddress(a)
	}
	s.items.ShippingAddress = a.Clone()
	s.mu.Unlock()

	emitAddress(&s.base, "shipping_address", a)
	return a, nil
}

// Tax sets caller provided tax information. Nil removes it.
func (s *SubscriptionPricing) Tax(t *tax.Tax) (*tax.Tax, error) {
	s.mu.Lock()
	if checkout := s.checkout; checkout != nil {
		s.mu.Unlock()
		return checkout.Tax(t)
	}
	s.mu.Unlock()

	if err := validateTax(t); err != nil {
		return nil, s.fail("tax", err)
	}

	s.mu.Lock()
	s.items.Tax = t.Clone()
	s.mu.Unlock()

	if t == nil {
		s.emit(events.Unset("tax"), nil)
		return nil, nil
	}
	s.emit(events.Set("tax"), t)
	return t, nil
}

// Remove clears one item. The currency can only be changed, never removed.
func (s *SubscriptionPricing) Remove(ctx context.Context, opts RemoveOptions) error {
	switch opts.Item {
	case ItemCurrency:
		return s.fail("remove", unremovable(opts.Item))
	case ItemCoupon:
		_, err := s.Coupon(ctx, "")
		return err
	case ItemGiftCard:
		_, err := s.GiftCard(ctx, "")
		return err
	case ItemAddress:
		_, err := s.Address(nil)
		return err
	case ItemShippingAddress:
		_, err := s.ShippingAddress(nil)
		return err
	case ItemTax:
		_, err := s.Tax(nil)
		return err
	case ItemAddon:
		if opts.Code == "" {
			return s.fail("remove", invalidItem(opts))
		}
		_, err := s.Addon(ctx, opts.Code, WithQuantity(0))
		return err
	case ItemPlan:
		s.mu.Lock()
		had := s.items.Plan != nil
		s.items.Plan = nil
		s.items.Addons = nil
		s.planToken++
		s.mu.Unlock()
		if had {
			s.emit(events.Unset("plan"), nil)
		}
		return nil
	default:
		return s.fail("remove", invalidItem(opts))
	}
}

// Reset drops every item and the last price. Pending lookups are discarded.
func (s *SubscriptionPricing) Reset() {
	s.mu.Lock()
	checkout := s.checkout
	s.mu.Unlock()

	currency := s.deps.Config.DefaultCurrency
	if checkout != nil {
		currency = checkout.CurrencyCode()
	}

	s.mu.Lock()
	s.items = SubscriptionItems{Currency: currency}
	s.price = nil
	s.planToken++
	s.couponToken++
	s.giftCardToken++
	s.mu.Unlock()
}

// Reprice computes the price of the current items. change fires on every
// successful reprice and change:external only when the price moved and the
// reprice was not internal.
func (s *SubscriptionPricing) Reprice(ctx context.Context, opts ...RepriceOption) (*SubscriptionPrice, error) {
	o := applyReprice(opts)

	s.mu.Lock()
	if s.items.Plan == nil {
		s.mu.Unlock()
		return nil, s.fail("plan", missingPlan())
	}
	items := s.items.Clone()
	s.mu.Unlock()

	price := newSubscriptionCalculations(s, items).run(ctx)

	s.mu.Lock()
	prev := s.price
	s.price = price
	s.mu.Unlock()

	changed := !price.Equal(prev)
	s.log.Debugw("subscription repriced",
		"plan_code", items.Plan.Code,
		"currency", price.Currency.Code,
		"total_now", price.Now.Total,
		"changed", changed,
		"internal", o.internal,
	)
	s.emit(events.Change, price)
	if changed && !o.internal {
		s.emit(events.ChangeExternal, price)
	}
	return price, nil
}

// Price returns the last computed price, nil before the first reprice. The
// result must not be modified.
func (s *SubscriptionPricing) Price() *SubscriptionPrice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price
}

// Items returns a copy of the current items
func (s *SubscriptionPricing) Items() SubscriptionItems {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// TotalNow returns the amount due today of the last price
func (s *SubscriptionPricing) TotalNow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.price == nil {
		return money.Decimalize(decimal.Zero, s.digits())
	}
	return s.price.Now.Total
}

// SubtotalPreDiscountNow returns the subtotal due today before the discount
func (s *SubscriptionPricing) SubtotalPreDiscountNow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.price == nil {
		return money.Decimalize(decimal.Zero, s.digits())
	}
	return money.Decimalize(amount(s.price.Now.Subtotal).Add(amount(s.price.Now.Discount)), s.digits())
}

func (s *SubscriptionPricing) CurrencyCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Currency
}

func (s *SubscriptionPricing) CurrencySymbol() string {
	return types.GetCurrencySymbol(s.CurrencyCode())
}

// IsEmbedded reports whether the subscription belongs to a checkout
func (s *SubscriptionPricing) IsEmbedded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout != nil
}

// planSnapshot returns a copy of the current plan, nil when none is set
func (s *SubscriptionPricing) planSnapshot() *plan.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Plan.Clone()
}

// attach hands the shared items over to checkout
func (s *SubscriptionPricing) attach(checkout *CheckoutPricing, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout != nil {
		return alreadyEmbedded(s.id)
	}
	s.checkout = checkout
	s.items.Coupon = nil
	s.items.GiftCard = nil
	s.items.Address = nil
	s.items.ShippingAddress = nil
	s.items.Tax = nil
	s.items.Currency = currency
	s.couponToken++
	s.giftCardToken++
	return nil
}

func (s *SubscriptionPricing) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout = nil
	s.items.Coupon = nil
	s.couponToken++
}

func emitAddress(b *base, field string, a *address.Address) {
	if a == nil {
		b.emit(events.Unset(field), nil)
		return
	}
	b.emit(events.Set(field), a)
}

func validateTax(t *tax.Tax) error {
	if t == nil || t.Amount == nil {
		return nil
	}
	if t.Amount.Now.IsNegative() || t.Amount.Next.IsNegative() {
		return invalidOption("tax amount must not be negative", map[string]any{
			"now":  t.Amount.Now.String(),
			"next": t.Amount.Next.String(),
		})
	}
	return nil
}

func missingPlan() error {
	return ierr.NewError("no plan selected").
		WithHint("Select a plan first").
		Mark(ierr.ErrMissingPlan)
}

func invalidCoupon(code string) error {
	return ierr.NewErrorf("coupon %s does not apply", code).
		WithHintf("Coupon %s cannot be used with this selection", code).
		WithReportableDetails(map[string]any{"coupon_code": code}).
		Mark(ierr.ErrInvalidCouponForSubscription)
}

func giftCardMismatch(g *giftcard.GiftCard, currency string) error {
	return ierr.NewErrorf("gift card %s is in %s, not %s", g.Code, g.Currency, currency).
		WithHintf("This gift card can only be used with %s", g.Currency).
		WithReportableDetails(map[string]any{
			"gift_card_code": g.Code,
			"gift_card":      g.Currency,
			"currency":       currency,
		}).
		Mark(ierr.ErrGiftCardCurrencyMismatch)
}

func invalidItem(opts RemoveOptions) error {
	return ierr.NewErrorf("cannot remove item %q", opts.Item).
		WithHint("Unknown item").
		WithReportableDetails(map[string]any{"item": string(opts.Item), "code": opts.Code}).
		Mark(ierr.ErrInvalidItem)
}

func unremovable(item ItemKind) error {
	return ierr.NewErrorf("item %q cannot be removed", item).
		WithHint("Change the currency instead of removing it").
		Mark(ierr.ErrUnremovableItem)
}

func alreadyEmbedded(id string) error {
	return invalidOption("subscription already belongs to a checkout", map[string]any{"subscription_id": id})
}
