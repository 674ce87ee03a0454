// Package cached decorates lookup repositories with a read-through cache.
package cached

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/cache"
	domainPlan "github.com/flexprice/checkout-pricing/internal/domain/plan"
	"github.com/flexprice/checkout-pricing/internal/logger"
)

type planRepository struct {
	next  domainPlan.Repository
	cache cache.Cache
	log   *logger.Logger
}

// NewPlanRepository caches plans by code. Callers always receive a copy.
func NewPlanRepository(next domainPlan.Repository, c cache.Cache, log *logger.Logger) domainPlan.Repository {
	return &planRepository{next: next, cache: c, log: log}
}

func (r *planRepository) Get(ctx context.Context, code string) (*domainPlan.Plan, error) {
	if p := r.GetCache(ctx, code); p != nil {
		return p.Clone(), nil
	}

	p, err := r.next.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	r.SetCache(ctx, code, p)
	return p.Clone(), nil
}

func (r *planRepository) SetCache(ctx context.Context, code string, p *domainPlan.Plan) {
	span := cache.StartCacheSpan(ctx, "plan", "set", map[string]interface{}{
		"plan_code": code,
	})
	defer cache.FinishSpan(span)

	cacheKey := cache.GenerateKey(cache.PrefixPlan, code)
	r.cache.Set(ctx, cacheKey, p.Clone(), 0)
	r.log.Debugw("cache set", "key", cacheKey)
	cache.SetSpanSuccess(span)
}

func (r *planRepository) GetCache(ctx context.Context, code string) *domainPlan.Plan {
	span := cache.StartCacheSpan(ctx, "plan", "get", map[string]interface{}{
		"plan_code": code,
	})
	defer cache.FinishSpan(span)

	cacheKey := cache.GenerateKey(cache.PrefixPlan, code)
	if value, found := r.cache.Get(ctx, cacheKey); found {
		if p, ok := value.(*domainPlan.Plan); ok {
			r.log.Debugw("cache hit", "key", cacheKey)
			cache.SetSpanSuccess(span)
			return p
		}
	}
	r.log.Debugw("cache miss", "key", cacheKey)
	return nil
}
