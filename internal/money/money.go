// Package money holds the rounding rules every published amount goes through.
package money

import (
	"github.com/shopspring/decimal"
)

// noiseDigits is the precision a tax amount is collapsed to before it is
// rounded up, so 9.800000001 stays 9.80.
const noiseDigits int32 = 6

// Round rounds d half away from zero at the given number of fraction digits.
func Round(d decimal.Decimal, digits int32) decimal.Decimal {
	return d.Round(digits)
}

// Decimalize rounds d and renders it with exactly digits fraction digits.
func Decimalize(d decimal.Decimal, digits int32) string {
	return d.Round(digits).StringFixed(digits)
}

// TaxRound clamps negative tax to zero and rounds to cents.
// Checkout calculations use this variant.
func TaxRound(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

// TaxRoundUp clamps negative tax to zero and rounds partial cents up.
// Subscription calculations use this variant.
func TaxRoundUp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(noiseDigits).RoundCeil(2)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
