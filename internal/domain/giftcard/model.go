package giftcard

import (
	"context"

	"github.com/shopspring/decimal"
)

// GiftCard is a prepaid balance redeemed against a total
type GiftCard struct {
	Code       string          `json:"code"`
	Currency   string          `json:"currency"`
	UnitAmount decimal.Decimal `json:"unit_amount"` // remaining balance
}

// Repository defines the interface for gift card lookups
type Repository interface {
	Get(ctx context.Context, code string) (*GiftCard, error)
}
