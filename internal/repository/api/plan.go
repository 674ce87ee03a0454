package api

import (
	"context"
	"net/url"

	domainPlan "github.com/flexprice/checkout-pricing/internal/domain/plan"
)

type planRepository struct {
	client *Client
}

func NewPlanRepository(client *Client) domainPlan.Repository {
	return &planRepository{client: client}
}

func (r *planRepository) Get(ctx context.Context, code string) (*domainPlan.Plan, error) {
	var p domainPlan.Plan
	if err := r.client.get(ctx, "/plans/"+url.PathEscape(code), nil, &p, "plan", code); err != nil {
		return nil, err
	}
	if p.Code == "" {
		p.Code = code
	}
	return &p, nil
}
