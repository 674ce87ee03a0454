package coupon

import (
	"context"
)

// Query identifies a coupon together with the plans it is redeemed against
type Query struct {
	Code  string
	Plans []string
}

// Repository defines the interface for coupon lookups
type Repository interface {
	Get(ctx context.Context, q Query) (*Coupon, error)
}
