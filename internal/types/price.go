package types

import (
	"slices"

	ierr "github.com/flexprice/checkout-pricing/internal/errors"
)

// AddOnType distinguishes flat priced add-ons from metered ones
type AddOnType string

const (
	// AddOnTypeFixed add-ons are priced by the selected quantity
	AddOnTypeFixed AddOnType = "fixed"
	// AddOnTypeUsage add-ons are billed on usage and never priced up front
	AddOnTypeUsage AddOnType = "usage"
)

// TierType defines how a tier table turns a quantity into an amount
type TierType string

const (
	// TierTypeFlat means the add-on is not tiered, unit amount times quantity
	TierTypeFlat TierType = "flat"
	// TierTypeTiered charges every tier the quantity reaches at its own unit amount
	TierTypeTiered TierType = "tiered"
	// TierTypeVolume charges the whole quantity at the unit amount of the tier it lands in
	TierTypeVolume TierType = "volume"
	// TierTypeStairstep charges the flat unit amount of the tier the quantity lands in
	TierTypeStairstep TierType = "stairstep"
)

func (t TierType) Validate() error {
	allowed := []TierType{TierTypeFlat, TierTypeTiered, TierTypeVolume, TierTypeStairstep}
	if t != "" && !slices.Contains(allowed, t) {
		return ierr.NewError("invalid tier type").
			WithHintf("Tier type must be one of %v", allowed).
			Mark(ierr.ErrInvalidOption)
	}
	return nil
}

const (
	// DEFAULT_PRICE_DIGITS is the number of fraction digits of published amounts
	DEFAULT_PRICE_DIGITS int32 = 2
	// TAX_DIGITS is the number of fraction digits tax amounts are rounded to
	TAX_DIGITS int32 = 2
)
