package pricing

import (
	"maps"
	"slices"

	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Currency is the currency a price is expressed in
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// SubscriptionTotals is one billing cycle of a subscription price. Every
// amount is a fixed point decimal string.
type SubscriptionTotals struct {
	Subtotal string `json:"subtotal"`
	Plan     string `json:"plan"`
	Addons   string `json:"addons"`
	SetupFee string `json:"setup_fee"`
	Discount string `json:"discount"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
	GiftCard string `json:"gift_card"`
}

// BasePlan holds the undiscounted unit prices of the plan
type BasePlan struct {
	Unit     string `json:"unit"`
	SetupFee string `json:"setup_fee"`
}

// Base holds unit prices before quantities apply
type Base struct {
	Plan   BasePlan          `json:"plan"`
	Addons map[string]string `json:"addons"`
}

// SubscriptionPrice is the result of a subscription reprice. Now is due
// today, Next on the following cycle.
type SubscriptionPrice struct {
	Now      SubscriptionTotals `json:"now"`
	Next     SubscriptionTotals `json:"next"`
	Base     Base               `json:"base"`
	Addons   map[string]string  `json:"addons"`
	Currency Currency           `json:"currency"`
	Taxes    []tax.Rate         `json:"taxes"`
}

// Equal reports whether two prices are identical
func (p *SubscriptionPrice) Equal(o *SubscriptionPrice) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Now == o.Now &&
		p.Next == o.Next &&
		p.Base.Plan == o.Base.Plan &&
		maps.Equal(p.Base.Addons, o.Base.Addons) &&
		maps.Equal(p.Addons, o.Addons) &&
		p.Currency == o.Currency &&
		ratesEqual(p.Taxes, o.Taxes)
}

// LineItem is one itemized entry of a checkout price
type LineItem struct {
	Type     string `json:"type"` // subscription or adjustment
	ID       string `json:"id,omitempty"`
	Code     string `json:"code"`
	Amount   string `json:"amount"`
	Quantity int    `json:"quantity"`
}

// CheckoutTotals is one billing cycle of a checkout price
type CheckoutTotals struct {
	Subscriptions string     `json:"subscriptions"`
	Adjustments   string     `json:"adjustments"`
	Discount      string     `json:"discount"`
	Subtotal      string     `json:"subtotal"`
	Taxes         string     `json:"taxes"`
	GiftCard      string     `json:"gift_card"`
	Total         string     `json:"total"`
	Items         []LineItem `json:"items"`
}

func (t CheckoutTotals) equal(o CheckoutTotals) bool {
	return t.Subscriptions == o.Subscriptions &&
		t.Adjustments == o.Adjustments &&
		t.Discount == o.Discount &&
		t.Subtotal == o.Subtotal &&
		t.Taxes == o.Taxes &&
		t.GiftCard == o.GiftCard &&
		t.Total == o.Total &&
		slices.Equal(t.Items, o.Items)
}

// CheckoutPrice is the result of a checkout reprice
type CheckoutPrice struct {
	Now      CheckoutTotals `json:"now"`
	Next     CheckoutTotals `json:"next"`
	Currency Currency       `json:"currency"`
	Taxes    []tax.Rate     `json:"taxes"`
}

// Equal reports whether two prices are identical
func (p *CheckoutPrice) Equal(o *CheckoutPrice) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Now.equal(o.Now) &&
		p.Next.equal(o.Next) &&
		p.Currency == o.Currency &&
		ratesEqual(p.Taxes, o.Taxes)
}

func ratesEqual(a, b []tax.Rate) bool {
	return slices.EqualFunc(a, b, func(x, y tax.Rate) bool { return x.Equal(y) })
}

// amount parses a published amount back into a decimal
func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
