package types

// DiscountType represents the shape of a coupon discount
type DiscountType string

const (
	// DiscountTypePercent discounts a rate of the discountable amount
	DiscountTypePercent DiscountType = "percent"
	// DiscountTypeDollars discounts a fixed amount per currency
	DiscountTypeDollars DiscountType = "dollars"
	// DiscountTypeFreeTrial grants a trial instead of a discount
	DiscountTypeFreeTrial DiscountType = "free_trial"
)

// RedemptionResource decides how many subscriptions a coupon is redeemed on
type RedemptionResource string

const (
	// RedemptionResourceAccount applies the coupon to every eligible subscription
	RedemptionResourceAccount RedemptionResource = "account"
	// RedemptionResourceSubscription applies the coupon to the single most valuable one
	RedemptionResourceSubscription RedemptionResource = "subscription"
)

// TrialInterval is the unit of a trial length
type TrialInterval string

const (
	TrialIntervalDays   TrialInterval = "days"
	TrialIntervalMonths TrialInterval = "months"
)

const (
	SECONDS_PER_DAY   int64 = 86400
	SECONDS_PER_MONTH int64 = 2678400
)

// Seconds converts a trial of length intervals into seconds. Months count as
// 31 days.
func (i TrialInterval) Seconds(length int) int64 {
	switch i {
	case TrialIntervalMonths:
		return int64(length) * SECONDS_PER_MONTH
	case TrialIntervalDays:
		return int64(length) * SECONDS_PER_DAY
	default:
		return 0
	}
}
