package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/pricing"
	"github.com/flexprice/checkout-pricing/internal/publisher"
	"github.com/flexprice/checkout-pricing/internal/pubsub/memory"
	"github.com/flexprice/checkout-pricing/internal/sentry"
	"github.com/flexprice/checkout-pricing/internal/testutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{
		"-plan", "basic, support",
		"-quantity", "3",
		"-addons", "extra:2,calls",
		"-country", "GB",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"basic", "support"}, f.plans)
	assert.Equal(t, 3, f.quantity)
	require.Len(t, f.addons, 2)
	assert.Equal(t, "extra", f.addons[0].code)
	assert.Equal(t, 2, *f.addons[0].quantity)
	assert.Nil(t, f.addons[1].quantity)
	assert.Equal(t, "GB", f.address().Country)
}

func TestParseFlagsErrors(t *testing.T) {
	_, err := parseFlags(nil)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-plan", "basic", "-addons", "extra:many"})
	assert.Error(t, err)
}

func TestAddressOmittedWhenEmpty(t *testing.T) {
	f, err := parseFlags([]string{"-plan", "basic"})
	require.NoError(t, err)
	assert.Nil(t, f.address())
}

func newTestQuoter(t *testing.T, args ...string) *quoter {
	f, err := parseFlags(args)
	require.NoError(t, err)

	cfg := config.GetDefaultConfig()
	log := logger.NewNoopLogger()
	plans := testutil.NewInMemoryPlanStore()
	for code, amount := range map[string]string{"basic": "49", "support": "20"} {
		require.NoError(t, plans.Create(context.Background(), &plan.Plan{
			Code:  code,
			Price: map[string]plan.PlanPrice{"USD": {UnitAmount: decimal.RequireFromString(amount)}},
		}))
	}

	factory := pricing.NewFactory(pricing.Deps{
		Plans:     plans,
		Coupons:   testutil.NewInMemoryCouponStore(),
		GiftCards: testutil.NewInMemoryGiftCardStore(),
		Taxes:     testutil.NewInMemoryTaxStore(),
		Logger:    log,
		Config:    cfg.Pricing,
	})
	pub := publisher.NewPricePublisher(memory.NewPubSub(cfg, log), cfg, log)
	return newQuoter(f, factory, pub, sentry.NewSentryService(cfg, log), log)
}

func TestRunSubscription(t *testing.T) {
	q := newTestQuoter(t, "-plan", "basic", "-quantity", "2")
	var out bytes.Buffer
	require.NoError(t, q.run(context.Background(), &out))

	var price pricing.SubscriptionPrice
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &price))
	assert.Equal(t, "98.00", price.Now.Total)
}

func TestRunCheckout(t *testing.T) {
	q := newTestQuoter(t, "-plan", "basic,support")
	var out bytes.Buffer
	require.NoError(t, q.run(context.Background(), &out))

	var price pricing.CheckoutPrice
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &price))
	assert.Equal(t, "69.00", price.Now.Total)
}

func TestRunUnknownPlan(t *testing.T) {
	q := newTestQuoter(t, "-plan", "missing")
	var out bytes.Buffer
	err := q.run(context.Background(), &out)
	assert.True(t, ierr.IsNotFound(err))
	assert.Zero(t, out.Len())
}
