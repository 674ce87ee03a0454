package plan

import (
	"context"
)

// Repository looks plans up by code
type Repository interface {
	Get(ctx context.Context, code string) (*Plan, error)
}
