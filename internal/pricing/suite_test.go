package pricing

import (
	"context"
	"sync"

	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/testutil"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/shopspring/decimal"
)

// pricingSuite seeds the catalog every pricing test works against
type pricingSuite struct {
	testutil.BasePricingTestSuite
	factory *Factory
}

func (s *pricingSuite) SetupTest() {
	s.BasePricingTestSuite.SetupTest()
	stores := s.GetStores()
	s.factory = NewFactory(Deps{
		Plans:     stores.PlanRepo,
		Coupons:   stores.CouponRepo,
		GiftCards: stores.GiftCardRepo,
		Taxes:     stores.TaxRepo,
		Logger:    s.GetLogger(),
		Config:    s.GetConfig().Pricing,
	})
	s.seedPlans()
	s.seedCoupons()
	s.seedGiftCards()
	stores.TaxRepo.SetRates("GB", "", tax.Rate{Type: "vat", Rate: d("0.2")})
	stores.TaxRepo.SetRates("GB", "digital", tax.Rate{Type: "vat", Rate: d("0.05"), Region: "GB"})
}

func (s *pricingSuite) seedPlans() {
	ctx := s.GetContext()
	repo := s.GetStores().PlanRepo
	trial := func(days int) *plan.Trial {
		return &plan.Trial{Interval: types.TrialIntervalDays, Length: days}
	}

	plans := []*plan.Plan{
		{Code: "basic", Name: "Basic", Price: usd("49", "0")},
		{Code: "twenty", Name: "Twenty", Price: usd("20", "0")},
		{Code: "setup", Name: "With setup fee", Price: usd("10", "5")},
		{Code: "trial", Name: "Trial", Price: usd("30", "0"), Trial: trial(14)},
		{Code: "short", Name: "Short trial", Price: usd("50", "0"), Trial: trial(2)},
		{Code: "long", Name: "Long trial", Price: usd("10", "0"), Trial: trial(12)},
		{Code: "eur-only", Name: "Euro", Price: map[string]plan.PlanPrice{
			"EUR": {UnitAmount: d("10")},
		}},
		{Code: "multi", Name: "Multi currency", Price: map[string]plan.PlanPrice{
			"USD": {UnitAmount: d("15")},
			"EUR": {UnitAmount: d("12")},
		}},
		{Code: "seats", Name: "Seats", Price: usd("10", "0"), Addons: []*plan.AddOn{
			{
				Code:     "extra",
				Quantity: 2,
				Price:    map[string]plan.AddOnPrice{"USD": {UnitAmount: d("5")}},
			},
			{
				Code:      "tiered",
				AddOnType: types.AddOnTypeFixed,
				TierType:  types.TierTypeTiered,
				Tiers: []plan.Tier{
					{EndingQuantity: 5, Currencies: []plan.TierCurrency{{CurrencyCode: "USD", UnitAmount: d("2")}}},
					{EndingQuantity: 10, Currencies: []plan.TierCurrency{{CurrencyCode: "USD", UnitAmount: d("4")}}},
					{Currencies: []plan.TierCurrency{{CurrencyCode: "USD", UnitAmount: d("6")}}},
				},
			},
			{
				Code:      "calls",
				AddOnType: types.AddOnTypeUsage,
				Price:     map[string]plan.AddOnPrice{"USD": {UnitAmount: d("0.01")}},
			},
		}},
	}
	for _, p := range plans {
		s.NoError(repo.Create(ctx, p))
	}
}

func (s *pricingSuite) seedCoupons() {
	ctx := s.GetContext()
	repo := s.GetStores().CouponRepo
	coupons := []*coupon.Coupon{
		{
			Code:              "PCT20",
			Discount:          coupon.Discount{Type: types.DiscountTypePercent, Rate: d("0.2")},
			AppliesToAllPlans: true,
		},
		{
			Code:              "ONCE20",
			Discount:          coupon.Discount{Type: types.DiscountTypeDollars, Amount: map[string]decimal.Decimal{"USD": d("20")}},
			SingleUse:         true,
			AppliesToAllPlans: true,
		},
		{
			Code:     "BASICONLY",
			Discount: coupon.Discount{Type: types.DiscountTypePercent, Rate: d("0.1")},
			Plans:    []string{"basic"},
		},
		{
			Code:               "HALFONE",
			Discount:           coupon.Discount{Type: types.DiscountTypePercent, Rate: d("0.5")},
			AppliesToAllPlans:  true,
			RedemptionResource: types.RedemptionResourceSubscription,
		},
		{
			Code:                    "CHARGES",
			Discount:                coupon.Discount{Type: types.DiscountTypeDollars, Amount: map[string]decimal.Decimal{"USD": d("3")}},
			AppliesToNonPlanCharges: true,
		},
		{
			Code: "TRIAL",
			Discount: coupon.Discount{
				Type:  types.DiscountTypeFreeTrial,
				Trial: &coupon.Trial{Unit: types.TrialIntervalMonths, Amount: 1},
			},
			AppliesToAllPlans:  true,
			RedemptionResource: types.RedemptionResourceSubscription,
		},
		{
			Code: "TRIALALL",
			Discount: coupon.Discount{
				Type:  types.DiscountTypeFreeTrial,
				Trial: &coupon.Trial{Unit: types.TrialIntervalDays, Amount: 7},
			},
			AppliesToAllPlans:  true,
			RedemptionResource: types.RedemptionResourceAccount,
		},
	}
	for _, c := range coupons {
		s.NoError(repo.Create(ctx, c))
	}
}

func (s *pricingSuite) seedGiftCards() {
	ctx := s.GetContext()
	repo := s.GetStores().GiftCardRepo
	s.NoError(repo.Create(ctx, &giftcard.GiftCard{Code: "GC15", Currency: "USD", UnitAmount: d("15")}))
	s.NoError(repo.Create(ctx, &giftcard.GiftCard{Code: "GCEUR", Currency: "EUR", UnitAmount: d("10")}))
}

// newSubscription returns a subscription pricing with planCode selected
func (s *pricingSuite) newSubscription(planCode string, opts ...QuantityOption) *SubscriptionPricing {
	sub := s.factory.NewSubscription()
	_, err := sub.Plan(s.GetContext(), planCode, opts...)
	s.Require().NoError(err)
	return sub
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T {
	return &v
}

func usd(unit, setupFee string) map[string]plan.PlanPrice {
	return map[string]plan.PlanPrice{
		"USD": {UnitAmount: d(unit), SetupFee: d(setupFee)},
	}
}

// recorder counts the events published by a pricing instance
type recorder struct {
	mu       sync.Mutex
	counts   map[string]int
	payloads map[string][]any
}

type subscriber interface {
	Subscribe(event string, h events.Handler) events.Token
}

func record(src subscriber, names ...string) *recorder {
	r := &recorder{
		counts:   make(map[string]int),
		payloads: make(map[string][]any),
	}
	for _, name := range names {
		src.Subscribe(name, func(payload any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.counts[name]++
			r.payloads[name] = append(r.payloads[name], payload)
		})
	}
	return r
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

type lookupHook interface {
	BeforeLookup(fn func(ctx context.Context, key string))
}

// pause blocks lookups of key until release is called. entered is closed
// once the first such lookup started.
func pause(hooks lookupHook, key string) (entered <-chan struct{}, release func()) {
	in := make(chan struct{})
	out := make(chan struct{})
	var once sync.Once
	hooks.BeforeLookup(func(_ context.Context, k string) {
		if k != key {
			return
		}
		once.Do(func() { close(in) })
		<-out
	})
	return in, func() { close(out) }
}
