package pricing

import (
	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ItemKind names a removable item of a pricing instance
type ItemKind string

const (
	ItemPlan            ItemKind = "plan"
	ItemAddon           ItemKind = "addon"
	ItemCoupon          ItemKind = "coupon"
	ItemAddress         ItemKind = "address"
	ItemShippingAddress ItemKind = "shipping_address"
	ItemTax             ItemKind = "tax"
	ItemCurrency        ItemKind = "currency"
	ItemGiftCard        ItemKind = "gift_card"
	ItemSubscription    ItemKind = "subscription"
	ItemAdjustment      ItemKind = "adjustment"
)

// RemoveOptions selects the item to remove. Code picks the add-on,
// subscription or adjustment for kinds that hold several.
type RemoveOptions struct {
	Item ItemKind
	Code string
}

// AddonSelection is a selected add-on and its quantity
type AddonSelection struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// SubscriptionItems is everything a subscription price is computed from
type SubscriptionItems struct {
	Plan            *plan.Plan         `json:"plan,omitempty"`
	Addons          []AddonSelection   `json:"addons,omitempty"`
	Coupon          *coupon.Coupon     `json:"coupon,omitempty"`
	Address         *address.Address   `json:"address,omitempty"`
	ShippingAddress *address.Address   `json:"shipping_address,omitempty"`
	Tax             *tax.Tax           `json:"tax,omitempty"`
	Currency        string             `json:"currency"`
	GiftCard        *giftcard.GiftCard `json:"gift_card,omitempty"`
}

// Clone returns a copy sharing nothing mutable with s
func (s SubscriptionItems) Clone() SubscriptionItems {
	c := s
	c.Plan = s.Plan.Clone()
	c.Addons = append([]AddonSelection(nil), s.Addons...)
	if s.Coupon != nil {
		cp := *s.Coupon
		c.Coupon = &cp
	}
	c.Address = s.Address.Clone()
	c.ShippingAddress = s.ShippingAddress.Clone()
	c.Tax = s.Tax.Clone()
	if s.GiftCard != nil {
		g := *s.GiftCard
		c.GiftCard = &g
	}
	return c
}

// addonQuantity returns the selected quantity of code
func (s SubscriptionItems) addonQuantity(code string) int {
	sel, _ := lo.Find(s.Addons, func(a AddonSelection) bool { return a.Code == code })
	return sel.Quantity
}

// Adjustment is a one time charge, or a credit when Amount is negative
type Adjustment struct {
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
	Currency    string          `json:"currency"`
	TaxExempt   bool            `json:"tax_exempt"`
	TaxCode     string          `json:"tax_code,omitempty"`
}

// Total is the amount times the quantity
func (a Adjustment) Total() decimal.Decimal {
	return a.Amount.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// AdjustmentOptions creates or updates the adjustment with Code. Nil fields
// keep the current value of an existing adjustment.
type AdjustmentOptions struct {
	Code        string  `validate:"omitempty,max=50"`
	Description *string `validate:"omitempty,max=255"`
	Amount      *decimal.Decimal
	Quantity    *int   `validate:"omitempty,min=1"`
	Currency    string `validate:"omitempty,len=3"`
	TaxExempt   *bool
	TaxCode     *string
}

// CheckoutItems is everything a checkout price is computed from
type CheckoutItems struct {
	Subscriptions   []*EmbeddedSubscription `json:"subscriptions,omitempty"`
	Adjustments     []Adjustment            `json:"adjustments,omitempty"`
	Coupon          *coupon.Coupon          `json:"coupon,omitempty"`
	GiftCard        *giftcard.GiftCard      `json:"gift_card,omitempty"`
	Address         *address.Address        `json:"address,omitempty"`
	ShippingAddress *address.Address        `json:"shipping_address,omitempty"`
	Tax             *tax.Tax                `json:"tax,omitempty"`
	Currency        string                  `json:"currency"`
}

// Clone copies the item lists. Embedded subscriptions are shared since each
// guards its own state.
func (c CheckoutItems) Clone() CheckoutItems {
	out := c
	out.Subscriptions = append([]*EmbeddedSubscription(nil), c.Subscriptions...)
	out.Adjustments = append([]Adjustment(nil), c.Adjustments...)
	if c.Coupon != nil {
		cp := *c.Coupon
		out.Coupon = &cp
	}
	if c.GiftCard != nil {
		g := *c.GiftCard
		out.GiftCard = &g
	}
	out.Address = c.Address.Clone()
	out.ShippingAddress = c.ShippingAddress.Clone()
	out.Tax = c.Tax.Clone()
	return out
}
