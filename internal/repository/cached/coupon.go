package cached

import (
	"context"
	"slices"
	"strings"

	"github.com/flexprice/checkout-pricing/internal/cache"
	domainCoupon "github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/logger"
)

type couponRepository struct {
	next  domainCoupon.Repository
	cache cache.Cache
	log   *logger.Logger
}

// NewCouponRepository caches coupons by code and the plan set they were
// requested for. Misses are not cached.
func NewCouponRepository(next domainCoupon.Repository, c cache.Cache, log *logger.Logger) domainCoupon.Repository {
	return &couponRepository{next: next, cache: c, log: log}
}

func couponKey(q domainCoupon.Query) string {
	plans := slices.Clone(q.Plans)
	slices.Sort(plans)
	return cache.GenerateKey(cache.PrefixCoupon, q.Code, strings.Join(plans, ","))
}

func (r *couponRepository) Get(ctx context.Context, q domainCoupon.Query) (*domainCoupon.Coupon, error) {
	span := cache.StartCacheSpan(ctx, "coupon", "get", map[string]interface{}{
		"coupon_code": q.Code,
	})
	defer cache.FinishSpan(span)

	key := couponKey(q)
	if value, found := r.cache.Get(ctx, key); found {
		if c, ok := value.(*domainCoupon.Coupon); ok {
			r.log.Debugw("cache hit", "key", key)
			cache.SetSpanSuccess(span)
			cp := *c
			return &cp, nil
		}
	}

	c, err := r.next.Get(ctx, q)
	if err != nil {
		cache.SetSpanError(span, err)
		return nil, err
	}

	stored := *c
	r.cache.Set(ctx, key, &stored, 0)
	r.log.Debugw("cache set", "key", key)
	cache.SetSpanSuccess(span)
	return c, nil
}
