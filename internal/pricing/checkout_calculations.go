package pricing

import (
	"context"
	"slices"
	"strings"

	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	"github.com/flexprice/checkout-pricing/internal/money"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

const (
	lineSubscription = "subscription"
	lineAdjustment   = "adjustment"

	// maxTaxLookups bounds the concurrent tax lookups of one reprice
	maxTaxLookups = 4
)

type checkoutCycle struct {
	subscriptions decimal.Decimal
	adjustments   decimal.Decimal
	discount      decimal.Decimal
	subtotal      decimal.Decimal
	taxes         decimal.Decimal
	giftCard      decimal.Decimal
	total         decimal.Decimal
}

// checkoutLine is one subscription or adjustment of a checkout together
// with its share of the discountable base.
type checkoutLine struct {
	kind      string
	id        string
	code      string
	quantity  int
	taxExempt bool
	taxCode   string

	now  decimal.Decimal
	next decimal.Decimal

	// amounts of this line the coupon was computed from
	discountableNow  decimal.Decimal
	discountableNext decimal.Decimal

	setupFee decimal.Decimal
	subtotal decimal.Decimal
	trial    int64
	sub      *EmbeddedSubscription
}

// checkoutCalculations runs the checkout pipeline over one snapshot of
// checkout items.
type checkoutCalculations struct {
	pricing  *CheckoutPricing
	items    CheckoutItems
	currency string
	digits   int32

	subs        []*checkoutLine
	adjustments []*checkoutLine

	now   checkoutCycle
	next  checkoutCycle
	taxes []tax.Rate
}

func newCheckoutCalculations(c *CheckoutPricing, items CheckoutItems) *checkoutCalculations {
	return &checkoutCalculations{
		pricing:  c,
		items:    items,
		currency: items.Currency,
		digits:   c.digits(),
		taxes:    []tax.Rate{},
	}
}

func (c *checkoutCalculations) run(ctx context.Context) *CheckoutPrice {
	c.subscriptions(ctx)
	c.adjustmentStage()
	c.discounts(ctx)
	c.subtotals()
	c.taxStage(ctx)
	c.giftCards()
	c.totals()
	return c.result()
}

// subscriptions reprices every embedded subscription without a coupon and
// sums their totals.
func (c *checkoutCalculations) subscriptions(ctx context.Context) {
	c.subs = c.subs[:0]
	for _, e := range c.items.Subscriptions {
		e.setCoupon(nil)
		line, ok := c.priceSubscription(ctx, e)
		if ok {
			c.subs = append(c.subs, line)
		}
	}
	c.sumSubscriptions()
}

func (c *checkoutCalculations) priceSubscription(ctx context.Context, e *EmbeddedSubscription) (*checkoutLine, bool) {
	price, err := e.reprice(ctx)
	if err != nil {
		c.pricing.softError("skipping subscription without a price", err, "subscription_id", e.ID())
		return nil, false
	}
	p := e.plan()
	if p == nil {
		return nil, false
	}
	return &checkoutLine{
		kind:      lineSubscription,
		id:        e.ID(),
		code:      p.Code,
		quantity:  p.Quantity,
		taxExempt: p.TaxExempt,
		taxCode:   p.TaxCode,
		now:       amount(price.Now.Total),
		next:      amount(price.Next.Total),
		setupFee:  amount(price.Now.SetupFee),
		subtotal:  amount(price.Now.Subtotal),
		trial:     p.Trial.Seconds(),
		sub:       e,
	}, true
}

func (c *checkoutCalculations) sumSubscriptions() {
	c.now.subscriptions, c.next.subscriptions = decimal.Zero, decimal.Zero
	for _, l := range c.subs {
		c.now.subscriptions = c.now.subscriptions.Add(l.now)
		c.next.subscriptions = c.next.subscriptions.Add(l.next)
	}
}

// adjustmentStage sums the adjustments in the checkout currency. They are
// due today only.
func (c *checkoutCalculations) adjustmentStage() {
	for _, a := range c.items.Adjustments {
		if a.Currency != "" && a.Currency != c.currency {
			continue
		}
		total := a.Total()
		c.adjustments = append(c.adjustments, &checkoutLine{
			kind:      lineAdjustment,
			id:        a.Code,
			code:      a.Code,
			quantity:  a.Quantity,
			taxExempt: a.TaxExempt,
			taxCode:   a.TaxCode,
			now:       total,
			next:      decimal.Zero,
		})
		c.now.adjustments = c.now.adjustments.Add(total)
	}
}

// discounts applies the checkout coupon. Free trials are pushed down onto
// subscriptions; everything else is computed from the discountable base.
func (c *checkoutCalculations) discounts(ctx context.Context) {
	cp := c.items.Coupon
	if cp == nil {
		return
	}
	if cp.IsFreeTrial() {
		c.freeTrial(ctx, cp)
		return
	}

	baseNow, baseNext := decimal.Zero, decimal.Zero
	for _, l := range c.discountableSubscriptions(cp) {
		l.discountableNow = l.now
		if !cp.AppliesToNonPlanCharges {
			l.discountableNow = l.now.Sub(l.setupFee)
		}
		l.discountableNext = l.next
		baseNow = baseNow.Add(l.discountableNow)
		baseNext = baseNext.Add(l.discountableNext)
	}
	if cp.AppliesToNonPlanCharges {
		for _, l := range c.adjustments {
			l.discountableNow = l.now
			baseNow = baseNow.Add(l.now)
		}
	}

	c.now.discount = cp.CalculateDiscount(baseNow, c.currency, c.digits)
	if !cp.SingleUse {
		c.next.discount = cp.CalculateDiscount(baseNext, c.currency, c.digits)
	}
}

// discountableSubscriptions returns the subscriptions cp is redeemed on.
// Coupons redeemed per subscription go to the one with the greatest
// subtotal due today, the first on ties.
func (c *checkoutCalculations) discountableSubscriptions(cp *coupon.Coupon) []*checkoutLine {
	eligible := c.eligible(cp)
	if !cp.RedeemsOnSingleSubscription() || len(eligible) == 0 {
		return eligible
	}
	best := eligible[0]
	for _, l := range eligible[1:] {
		if l.subtotal.GreaterThan(best.subtotal) {
			best = l
		}
	}
	return []*checkoutLine{best}
}

func (c *checkoutCalculations) eligible(cp *coupon.Coupon) []*checkoutLine {
	var out []*checkoutLine
	for _, l := range c.subs {
		if cp.AppliesToPlan(l.code) {
			out = append(out, l)
		}
	}
	return out
}

// freeTrial hands cp to the subscriptions it is redeemed on and prices
// them again. A coupon redeemed per subscription goes to the one with the
// longest trial, then the greatest subtotal, the first on ties.
func (c *checkoutCalculations) freeTrial(ctx context.Context, cp *coupon.Coupon) {
	targets := c.eligible(cp)
	if cp.RedeemsOnSingleSubscription() && len(targets) > 0 {
		best := targets[0]
		for _, l := range targets[1:] {
			if l.trial > best.trial || (l.trial == best.trial && l.subtotal.GreaterThan(best.subtotal)) {
				best = l
			}
		}
		targets = []*checkoutLine{best}
	}

	for _, l := range targets {
		l.sub.setCoupon(cp)
		repriced, ok := c.priceSubscription(ctx, l.sub)
		if !ok {
			continue
		}
		*l = *repriced
	}
	c.sumSubscriptions()
}

func (c *checkoutCalculations) subtotals() {
	c.now.subtotal = c.now.subscriptions.Add(c.now.adjustments).Sub(c.now.discount)
	c.next.subtotal = c.next.subscriptions.Sub(c.next.discount)
}

type taxResult struct {
	code  string
	rates []tax.Rate
	err   error
}

// taxStage resolves tax from an explicit amount, else looks the rates up
// once per tax code in parallel. A failed lookup zeroes only the lines
// with that code.
func (c *checkoutCalculations) taxStage(ctx context.Context) {
	t := c.items.Tax
	if t != nil && t.Amount != nil {
		c.now.taxes = money.TaxRound(t.Amount.Now)
		c.next.taxes = money.TaxRound(t.Amount.Next)
		return
	}

	q := tax.BuildQuery(c.items.ShippingAddress, c.items.Address, t)
	if q.IsEmpty() {
		return
	}

	byCode := make(map[string][]*checkoutLine)
	for _, l := range c.lines() {
		if l.taxExempt {
			continue
		}
		code := l.taxCode
		if code == "" {
			code = q.TaxCode
		}
		byCode[code] = append(byCode[code], l)
	}
	if len(byCode) == 0 {
		return
	}

	p := pool.NewWithResults[taxResult]().WithMaxGoroutines(maxTaxLookups)
	for code := range byCode {
		lookup := q
		lookup.TaxCode = code
		p.Go(func() taxResult {
			rates, err := c.pricing.deps.Taxes.Rates(ctx, lookup)
			return taxResult{code: lookup.TaxCode, rates: rates, err: err}
		})
	}
	results := p.Wait()
	slices.SortFunc(results, func(a, b taxResult) int { return strings.Compare(a.code, b.code) })

	rate := c.couponRate()
	singleUse := c.items.Coupon != nil && c.items.Coupon.SingleUse
	taxNow, taxNext := decimal.Zero, decimal.Zero
	var rates []tax.Rate
	for _, res := range results {
		if res.err != nil {
			c.pricing.softError("tax lookup failed", res.err, "country", q.Country, "tax_code", res.code)
			continue
		}
		for _, r := range res.rates {
			for _, l := range byCode[res.code] {
				taxNow = taxNow.Add(r.Rate.Mul(l.now.Sub(l.discountableNow.Mul(rate))))
				next := l.next
				if !singleUse {
					next = next.Sub(l.discountableNext.Mul(rate))
				}
				taxNext = taxNext.Add(r.Rate.Mul(next))
			}
		}
		rates = append(rates, res.rates...)
	}

	c.now.taxes = money.TaxRound(taxNow)
	c.next.taxes = money.TaxRound(taxNext)
	c.taxes = tax.Dedupe(rates)
}

// couponRate is the rate of a percent coupon, zero otherwise
func (c *checkoutCalculations) couponRate() decimal.Decimal {
	cp := c.items.Coupon
	if cp == nil || !cp.IsRate() {
		return decimal.Zero
	}
	return cp.Discount.Rate
}

func (c *checkoutCalculations) lines() []*checkoutLine {
	return append(slices.Clone(c.subs), c.adjustments...)
}

func (c *checkoutCalculations) giftCards() {
	g := c.items.GiftCard
	if g == nil || g.Currency != c.currency {
		return
	}
	c.now.giftCard, c.next.giftCard = consumeGiftCard(g.UnitAmount,
		c.now.subtotal.Add(c.now.taxes),
		c.next.subtotal.Add(c.next.taxes))
}

func (c *checkoutCalculations) totals() {
	c.now.total = c.now.subtotal.Add(c.now.taxes).Sub(c.now.giftCard)
	c.next.total = c.next.subtotal.Add(c.next.taxes).Sub(c.next.giftCard)
}

func (c *checkoutCalculations) result() *CheckoutPrice {
	now := c.now.decimalize(c.digits)
	next := c.next.decimalize(c.digits)

	now.Items = make([]LineItem, 0, len(c.subs)+len(c.adjustments))
	next.Items = make([]LineItem, 0, len(c.subs))
	for _, l := range c.subs {
		now.Items = append(now.Items, l.item(l.now, c.digits))
		next.Items = append(next.Items, l.item(l.next, c.digits))
	}
	for _, l := range c.adjustments {
		now.Items = append(now.Items, l.item(l.now, c.digits))
	}

	return &CheckoutPrice{
		Now:  now,
		Next: next,
		Currency: Currency{
			Code:   c.currency,
			Symbol: types.GetCurrencySymbol(c.currency),
		},
		Taxes: c.taxes,
	}
}

func (l *checkoutLine) item(amt decimal.Decimal, digits int32) LineItem {
	return LineItem{
		Type:     l.kind,
		ID:       l.id,
		Code:     l.code,
		Amount:   money.Decimalize(amt, digits),
		Quantity: l.quantity,
	}
}

func (c checkoutCycle) decimalize(digits int32) CheckoutTotals {
	return CheckoutTotals{
		Subscriptions: money.Decimalize(c.subscriptions, digits),
		Adjustments:   money.Decimalize(c.adjustments, digits),
		Discount:      money.Decimalize(c.discount, digits),
		Subtotal:      money.Decimalize(c.subtotal, digits),
		Taxes:         money.Decimalize(c.taxes, digits),
		GiftCard:      money.Decimalize(c.giftCard, digits),
		Total:         money.Decimalize(c.total, digits),
	}
}
