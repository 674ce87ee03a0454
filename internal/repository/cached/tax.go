package cached

import (
	"context"

	"github.com/flexprice/checkout-pricing/internal/cache"
	domainTax "github.com/flexprice/checkout-pricing/internal/domain/tax"
	"github.com/flexprice/checkout-pricing/internal/logger"
)

type taxRepository struct {
	next  domainTax.Repository
	cache cache.Cache
	log   *logger.Logger
}

// NewTaxRepository caches tax rates per tax situation
func NewTaxRepository(next domainTax.Repository, c cache.Cache, log *logger.Logger) domainTax.Repository {
	return &taxRepository{next: next, cache: c, log: log}
}

func (r *taxRepository) Rates(ctx context.Context, q domainTax.Query) ([]domainTax.Rate, error) {
	span := cache.StartCacheSpan(ctx, "taxrate", "get", map[string]interface{}{
		"country":  q.Country,
		"tax_code": q.TaxCode,
	})
	defer cache.FinishSpan(span)

	key := cache.GenerateKey(cache.PrefixTaxRate, q.Country, q.PostalCode, q.VatNumber, q.TaxCode)
	if value, found := r.cache.Get(ctx, key); found {
		if rates, ok := value.([]domainTax.Rate); ok {
			r.log.Debugw("cache hit", "key", key)
			cache.SetSpanSuccess(span)
			return append([]domainTax.Rate(nil), rates...), nil
		}
	}

	rates, err := r.next.Rates(ctx, q)
	if err != nil {
		cache.SetSpanError(span, err)
		return nil, err
	}

	r.cache.Set(ctx, key, append([]domainTax.Rate(nil), rates...), 0)
	r.log.Debugw("cache set", "key", key)
	cache.SetSpanSuccess(span)
	return rates, nil
}
