package cached

import (
	"testing"
	"time"

	"github.com/flexprice/checkout-pricing/internal/cache"
	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/testutil"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CachedRepositorySuite struct {
	suite.Suite
	cache   cache.Cache
	plans   *testutil.InMemoryPlanStore
	coupons *testutil.InMemoryCouponStore
	taxes   *testutil.InMemoryTaxStore
}

func TestCachedRepository(t *testing.T) {
	suite.Run(t, new(CachedRepositorySuite))
}

func (s *CachedRepositorySuite) SetupTest() {
	s.cache = cache.NewInMemoryCache(config.CacheConfig{Enabled: true, TTL: time.Minute})
	s.plans = testutil.NewInMemoryPlanStore()
	s.coupons = testutil.NewInMemoryCouponStore()
	s.taxes = testutil.NewInMemoryTaxStore()

	ctx := testutil.SetupContext()
	s.NoError(s.plans.Create(ctx, &plan.Plan{
		Code:  "basic",
		Price: map[string]plan.PlanPrice{"USD": {UnitAmount: decimal.NewFromInt(10)}},
	}))
	s.NoError(s.coupons.Create(ctx, &coupon.Coupon{
		Code:     "SAVE",
		Discount: coupon.Discount{Type: types.DiscountTypePercent, Rate: decimal.RequireFromString("0.1")},
	}))
	s.taxes.SetRates("GB", "", tax.Rate{Type: "vat", Rate: decimal.RequireFromString("0.2")})
}

func (s *CachedRepositorySuite) TestPlanReadThrough() {
	ctx := testutil.SetupContext()
	repo := NewPlanRepository(s.plans, s.cache, logger.NewNoopLogger())

	first, err := repo.Get(ctx, "basic")
	s.Require().NoError(err)
	first.Quantity = 9

	second, err := repo.Get(ctx, "basic")
	s.Require().NoError(err)
	s.Equal(0, second.Quantity)
	s.Equal(1, s.plans.Calls("basic"))
}

func (s *CachedRepositorySuite) TestPlanMissIsNotCached() {
	ctx := testutil.SetupContext()
	repo := NewPlanRepository(s.plans, s.cache, logger.NewNoopLogger())

	_, err := repo.Get(ctx, "gold")
	s.True(ierr.IsNotFound(err))
	_, err = repo.Get(ctx, "gold")
	s.True(ierr.IsNotFound(err))
	s.Equal(2, s.plans.Calls("gold"))
}

func (s *CachedRepositorySuite) TestCouponKeyIncludesPlans() {
	ctx := testutil.SetupContext()
	repo := NewCouponRepository(s.coupons, s.cache, logger.NewNoopLogger())

	_, err := repo.Get(ctx, coupon.Query{Code: "SAVE", Plans: []string{"pro", "basic"}})
	s.Require().NoError(err)
	_, err = repo.Get(ctx, coupon.Query{Code: "SAVE", Plans: []string{"basic", "pro"}})
	s.Require().NoError(err)
	_, err = repo.Get(ctx, coupon.Query{Code: "SAVE", Plans: []string{"basic"}})
	s.Require().NoError(err)

	s.Equal(2, s.coupons.Calls("SAVE"))
}

func (s *CachedRepositorySuite) TestTaxReadThrough() {
	ctx := testutil.SetupContext()
	repo := NewTaxRepository(s.taxes, s.cache, logger.NewNoopLogger())

	for range 3 {
		rates, err := repo.Rates(ctx, tax.Query{Country: "GB"})
		s.Require().NoError(err)
		s.Len(rates, 1)
	}
	s.Equal(1, s.taxes.Calls(""))
}
