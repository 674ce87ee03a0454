package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/testutil"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/stretchr/testify/suite"
)

type APIRepositorySuite struct {
	suite.Suite
	http   *testutil.MockHTTPClient
	client *Client
}

func TestAPIRepository(t *testing.T) {
	suite.Run(t, new(APIRepositorySuite))
}

func (s *APIRepositorySuite) SetupTest() {
	s.http = testutil.NewMockHTTPClient()
	cfg := config.GetDefaultConfig().API
	cfg.BaseURL = "https://pricing.test/v1/"
	cfg.PublicKey = "pk_test"
	s.client = NewClient(s.http, cfg, logger.NewNoopLogger())
}

func (s *APIRepositorySuite) TestGetPlan() {
	s.http.RegisterJSONResponse("/plans/basic", `{
		"code": "basic",
		"name": "Basic",
		"price": {"USD": {"unit_amount": 49, "setup_fee": "5.00"}},
		"trial": {"interval": "days", "length": 14},
		"addons": [{
			"code": "seats",
			"add_on_type": "fixed",
			"tier_type": "tiered",
			"tiers": [
				{"ending_quantity": 5, "currencies": [{"currency_code": "USD", "unit_amount": 2}]},
				{"ending_quantity": 0, "currencies": [{"currency_code": "USD", "unit_amount": 1.5}]}
			]
		}]
	}`)

	p, err := NewPlanRepository(s.client).Get(testutil.SetupContext(), "basic")
	s.Require().NoError(err)
	s.Equal("Basic", p.Name)
	s.Equal("49", p.Price["USD"].UnitAmount.String())
	s.Equal("5", p.Price["USD"].SetupFee.String())
	s.Equal(types.TrialIntervalDays, p.Trial.Interval)

	seats, ok := p.AddOn("seats")
	s.Require().True(ok)
	s.True(seats.IsTiered())
	s.Equal("13", seats.TieredTotal(7, "USD").String())

	reqs := s.http.Requests()
	s.Require().Len(reqs, 1)
	s.Equal("https://pricing.test/v1/plans/basic", reqs[0].URL)
	s.Equal("Bearer pk_test", reqs[0].Headers["Authorization"])
}

func (s *APIRepositorySuite) TestGetPlanNotFound() {
	_, err := NewPlanRepository(s.client).Get(testutil.SetupContext(), "missing")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
	s.Equal("not-found", ierr.Code(err))
}

func (s *APIRepositorySuite) TestServerErrorIsAPIError() {
	s.http.RegisterResponse("/gift_cards/GC1", testutil.MockResponse{StatusCode: http.StatusBadGateway})

	_, err := NewGiftCardRepository(s.client).Get(testutil.SetupContext(), "GC1")
	s.Require().Error(err)
	s.True(ierr.IsAPI(err))
	s.False(ierr.IsNotFound(err))
}

func (s *APIRepositorySuite) TestTransportErrorPassesThrough() {
	s.http.RegisterResponse("/gift_cards/GC2", testutil.MockResponse{
		Err: ierr.NewError("deadline").Mark(ierr.ErrAPITimeout),
	})

	_, err := NewGiftCardRepository(s.client).Get(testutil.SetupContext(), "GC2")
	s.True(ierr.IsAPITimeout(err))
}

func (s *APIRepositorySuite) TestMalformedBody() {
	s.http.RegisterJSONResponse("/gift_cards/GC3", `{"unit_amount": [}`)

	_, err := NewGiftCardRepository(s.client).Get(testutil.SetupContext(), "GC3")
	s.True(ierr.IsAPI(err))
}

func (s *APIRepositorySuite) TestGetCouponSendsPlans() {
	s.http.RegisterJSONResponse("/coupons/SAVE20", `{
		"code": "SAVE20",
		"discount": {"type": "percent", "rate": 0.2},
		"applies_to_all_plans": false,
		"plans": ["basic"]
	}`)

	c, err := NewCouponRepository(s.client).Get(testutil.SetupContext(), coupon.Query{
		Code:  "SAVE20",
		Plans: []string{"basic", "pro"},
	})
	s.Require().NoError(err)
	s.True(c.IsRate())
	s.Equal("0.2", c.Discount.Rate.String())

	u, err := url.Parse(s.http.Requests()[0].URL)
	s.Require().NoError(err)
	s.Equal([]string{"basic", "pro"}, u.Query()["plan_codes[]"])
}

func (s *APIRepositorySuite) TestTaxRates() {
	s.http.RegisterJSONResponse("/tax", `[{"type": "vat", "rate": "0.2", "region": "GB"}]`)

	rates, err := NewTaxRepository(s.client).Rates(testutil.SetupContext(), tax.Query{
		Country:   "GB",
		VatNumber: "GB123",
	})
	s.Require().NoError(err)
	s.Require().Len(rates, 1)
	s.Equal("vat", rates[0].Type)
	s.Equal("0.2", rates[0].Rate.String())

	u, err := url.Parse(s.http.Requests()[0].URL)
	s.Require().NoError(err)
	s.Equal("GB", u.Query().Get("country"))
	s.Equal("GB123", u.Query().Get("vat_number"))
	s.False(u.Query().Has("postal_code"))
}
