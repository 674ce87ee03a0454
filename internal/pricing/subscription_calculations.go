package pricing

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	"github.com/flexprice/checkout-pricing/internal/money"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/shopspring/decimal"
)

// subscriptionCycle holds the running amounts of one billing cycle
type subscriptionCycle struct {
	plan     decimal.Decimal
	addons   decimal.Decimal
	setupFee decimal.Decimal
	discount decimal.Decimal
	subtotal decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
	giftCard decimal.Decimal
}

func (c subscriptionCycle) decimalize(digits int32) SubscriptionTotals {
	return SubscriptionTotals{
		Subtotal: money.Decimalize(c.subtotal, digits),
		Plan:     money.Decimalize(c.plan, digits),
		Addons:   money.Decimalize(c.addons, digits),
		SetupFee: money.Decimalize(c.setupFee, digits),
		Discount: money.Decimalize(c.discount, digits),
		Tax:      money.Decimalize(c.tax, digits),
		Total:    money.Decimalize(c.total, digits),
		GiftCard: money.Decimalize(c.giftCard, digits),
	}
}

// subscriptionCalculations runs the pricing pipeline over one snapshot of
// subscription items. Every stage depends on the ones before it.
type subscriptionCalculations struct {
	pricing  *SubscriptionPricing
	items    SubscriptionItems
	currency string
	digits   int32
	trial    bool

	now  subscriptionCycle
	next subscriptionCycle

	baseUnit     decimal.Decimal
	baseSetupFee decimal.Decimal
	baseAddons   map[string]decimal.Decimal
	addons       map[string]decimal.Decimal
	taxes        []tax.Rate
}

func newSubscriptionCalculations(s *SubscriptionPricing, items SubscriptionItems) *subscriptionCalculations {
	return &subscriptionCalculations{
		pricing:    s,
		items:      items,
		currency:   items.Currency,
		digits:     s.digits(),
		baseAddons: make(map[string]decimal.Decimal),
		addons:     make(map[string]decimal.Decimal),
		taxes:      []tax.Rate{},
	}
}

func (c *subscriptionCalculations) run(ctx context.Context) *SubscriptionPrice {
	c.plan()
	c.addonStage()
	c.setupFee()
	c.discount()
	c.subtotal()
	c.tax(ctx)
	c.total()
	c.giftCard()
	return c.result()
}

func (c *subscriptionCalculations) plan() {
	p := c.items.Plan
	c.trial = p.HasTrial() || (c.items.Coupon != nil && c.items.Coupon.IsFreeTrial())

	price := p.Price[c.currency]
	c.baseUnit = price.UnitAmount
	c.baseSetupFee = price.SetupFee

	amount := price.UnitAmount.Mul(decimal.NewFromInt(int64(p.Quantity)))
	c.now.plan = amount
	c.next.plan = amount
	if c.trial {
		c.now.plan = decimal.Zero
	}
}

func (c *subscriptionCalculations) addonStage() {
	p := c.items.Plan
	for _, addon := range p.Addons {
		if !addon.IsFixed() {
			continue
		}
		qty := c.items.addonQuantity(addon.Code)
		c.baseAddons[addon.Code] = addon.UnitAmount(qty, c.currency)
		if qty == 0 {
			continue
		}

		amount := decimal.Zero
		if p.Quantity >= 1 {
			amount = addon.Amount(qty, c.currency)
		}
		c.addons[addon.Code] = amount
		c.next.addons = c.next.addons.Add(amount)
		if !c.trial {
			c.now.addons = c.now.addons.Add(amount)
		}
	}
}

func (c *subscriptionCalculations) setupFee() {
	if c.items.Plan.Quantity > 0 {
		c.now.setupFee = c.baseSetupFee
	}
}

func (c *subscriptionCalculations) discount() {
	cp := c.items.Coupon
	if cp == nil || cp.IsFreeTrial() || !cp.AppliesToPlan(c.items.Plan.Code) {
		return
	}

	baseNow := c.now.plan.Add(c.now.addons)
	if cp.AppliesToNonPlanCharges {
		baseNow = baseNow.Add(c.now.setupFee)
	}
	baseNext := c.next.plan.Add(c.next.addons)

	c.now.discount = cp.CalculateDiscount(baseNow, c.currency, c.digits)
	c.next.discount = cp.CalculateDiscount(baseNext, c.currency, c.digits)
	if cp.SingleUse && c.now.discount.IsPositive() {
		c.next.discount = decimal.Zero
	}
}

func (c *subscriptionCalculations) subtotal() {
	c.now.subtotal = c.now.plan.Add(c.now.addons).Add(c.now.setupFee).Sub(c.now.discount)
	c.next.subtotal = c.next.plan.Add(c.next.addons).Sub(c.next.discount)
}

// tax resolves tax from an explicit amount, else from the shipping or
// billing address. A failed lookup is reported and leaves tax at zero.
func (c *subscriptionCalculations) tax(ctx context.Context) {
	t := c.items.Tax
	if t != nil && t.Amount != nil {
		c.now.tax = money.TaxRoundUp(t.Amount.Now)
		c.next.tax = money.TaxRoundUp(t.Amount.Next)
		return
	}
	if c.items.Plan.TaxExempt {
		return
	}

	q := tax.BuildQuery(c.items.ShippingAddress, c.items.Address, t)
	if q.IsEmpty() {
		return
	}
	if q.TaxCode == "" {
		q.TaxCode = c.items.Plan.TaxCode
	}

	rates, err := c.pricing.deps.Taxes.Rates(ctx, q)
	if err != nil {
		c.pricing.softError("tax lookup failed", err, "country", q.Country, "tax_code", q.TaxCode)
		return
	}

	taxNow, taxNext := decimal.Zero, decimal.Zero
	for _, r := range rates {
		taxNow = taxNow.Add(c.now.subtotal.Mul(r.Rate))
		taxNext = taxNext.Add(c.next.subtotal.Mul(r.Rate))
	}
	c.now.tax = money.TaxRoundUp(taxNow)
	c.next.tax = money.TaxRoundUp(taxNext)
	c.taxes = tax.Dedupe(rates)
}

func (c *subscriptionCalculations) total() {
	c.now.total = c.now.subtotal.Add(c.now.tax)
	c.next.total = c.next.subtotal.Add(c.next.tax)
}

// giftCard consumes the balance from today's total first and carries what
// remains over to the next cycle.
func (c *subscriptionCalculations) giftCard() {
	g := c.items.GiftCard
	if g == nil || g.Currency != c.currency {
		return
	}
	c.now.giftCard, c.next.giftCard = consumeGiftCard(g.UnitAmount, c.now.total, c.next.total)
	c.now.total = c.now.total.Sub(c.now.giftCard)
	c.next.total = c.next.total.Sub(c.next.giftCard)
}

func (c *subscriptionCalculations) result() *SubscriptionPrice {
	price := &SubscriptionPrice{
		Now:  c.now.decimalize(c.digits),
		Next: c.next.decimalize(c.digits),
		Base: Base{
			Plan: BasePlan{
				Unit:     money.Decimalize(c.baseUnit, c.digits),
				SetupFee: money.Decimalize(c.baseSetupFee, c.digits),
			},
			Addons: decimalizeAll(c.baseAddons, c.digits),
		},
		Addons: decimalizeAll(c.addons, c.digits),
		Currency: Currency{
			Code:   c.currency,
			Symbol: types.GetCurrencySymbol(c.currency),
		},
		Taxes: c.taxes,
	}
	return price
}

// consumeGiftCard splits balance across two totals, today's first
func consumeGiftCard(balance, now, next decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !balance.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	usedNow := money.Min(balance, money.NonNegative(now))
	remains := balance.Sub(usedNow)
	usedNext := money.Min(remains, money.NonNegative(next))
	return usedNow, usedNext
}

func decimalizeAll(m map[string]decimal.Decimal, digits int32) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = money.Decimalize(v, digits)
	}
	return out
}
