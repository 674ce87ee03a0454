package api

import (
	"context"
	"net/url"

	domainCoupon "github.com/flexprice/checkout-pricing/internal/domain/coupon"
)

type couponRepository struct {
	client *Client
}

func NewCouponRepository(client *Client) domainCoupon.Repository {
	return &couponRepository{client: client}
}

func (r *couponRepository) Get(ctx context.Context, q domainCoupon.Query) (*domainCoupon.Coupon, error) {
	query := url.Values{}
	for _, plan := range q.Plans {
		query.Add("plan_codes[]", plan)
	}

	var c domainCoupon.Coupon
	if err := r.client.get(ctx, "/coupons/"+url.PathEscape(q.Code), query, &c, "coupon", q.Code); err != nil {
		return nil, err
	}
	if c.Code == "" {
		c.Code = q.Code
	}
	return &c, nil
}
