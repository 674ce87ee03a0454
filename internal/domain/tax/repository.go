package tax

import (
	"context"
)

// Repository resolves the tax rates of a tax situation. An empty result
// means no tax applies.
type Repository interface {
	Rates(ctx context.Context, q Query) ([]Rate, error)
}
