package coupon

import (
	"slices"

	"github.com/flexprice/checkout-pricing/internal/money"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/shopspring/decimal"
)

// Coupon is a redeemable discount as served by the coupons endpoint
type Coupon struct {
	Code                    string                   `json:"code"`
	Name                    string                   `json:"name"`
	Discount                Discount                 `json:"discount"`
	SingleUse               bool                     `json:"single_use"`
	AppliesToAllPlans       bool                     `json:"applies_to_all_plans"`
	Plans                   []string                 `json:"plans,omitempty"`
	AppliesToNonPlanCharges bool                     `json:"applies_to_non_plan_charges"`
	RedemptionResource      types.RedemptionResource `json:"redemption_resource,omitempty"`
}

// Discount is one of a rate, an amount per currency or a free trial
type Discount struct {
	Type   types.DiscountType         `json:"type"`
	Rate   decimal.Decimal            `json:"rate"`
	Amount map[string]decimal.Decimal `json:"amount,omitempty"`
	Trial  *Trial                     `json:"trial,omitempty"`
}

// Trial is the trial a free_trial coupon grants
type Trial struct {
	Unit   types.TrialInterval `json:"unit"`
	Amount int                 `json:"amount"`
}

// IsFreeTrial reports whether the coupon grants a trial instead of a discount
func (c *Coupon) IsFreeTrial() bool {
	return c.Discount.Type == types.DiscountTypeFreeTrial
}

// IsRate reports whether the coupon discounts a rate of the base
func (c *Coupon) IsRate() bool {
	return c.Discount.Type == types.DiscountTypePercent
}

// AppliesToPlan reports whether the coupon may be redeemed against planCode
func (c *Coupon) AppliesToPlan(planCode string) bool {
	return c.AppliesToAllPlans || slices.Contains(c.Plans, planCode)
}

// RedeemsOnSingleSubscription reports whether only the most valuable
// subscription of a checkout receives the coupon
func (c *Coupon) RedeemsOnSingleSubscription() bool {
	return c.RedemptionResource == types.RedemptionResourceSubscription
}

// CalculateDiscount returns the discount for base in currency. Rates are
// rounded to digits and amounts are capped at base. Free trials discount
// nothing.
func (c *Coupon) CalculateDiscount(base decimal.Decimal, currency string, digits int32) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	switch c.Discount.Type {
	case types.DiscountTypePercent:
		return money.NonNegative(money.Round(base.Mul(c.Discount.Rate), digits))
	case types.DiscountTypeDollars:
		return money.NonNegative(money.Min(base, c.Discount.Amount[currency]))
	default:
		return decimal.Zero
	}
}

// TrialSeconds returns the length of a free trial in seconds
func (c *Coupon) TrialSeconds() int64 {
	if !c.IsFreeTrial() || c.Discount.Trial == nil {
		return 0
	}
	return c.Discount.Trial.Unit.Seconds(c.Discount.Trial.Amount)
}
