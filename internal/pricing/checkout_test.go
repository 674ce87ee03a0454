package pricing

import (
	"errors"
	"strings"
	"testing"

	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/stretchr/testify/suite"
)

type CheckoutPricingSuite struct {
	pricingSuite
	checkout *CheckoutPricing
}

func TestCheckoutPricing(t *testing.T) {
	suite.Run(t, new(CheckoutPricingSuite))
}

func (s *CheckoutPricingSuite) SetupTest() {
	s.pricingSuite.SetupTest()
	s.checkout = s.factory.NewCheckout()
}

// embed adds a new subscription on planCode to the checkout
func (s *CheckoutPricingSuite) embed(planCode string) *SubscriptionPricing {
	sub := s.newSubscription(planCode)
	_, err := s.checkout.Subscription(s.GetContext(), sub)
	s.Require().NoError(err)
	return sub
}

func (s *CheckoutPricingSuite) adjustment(amt string, opts AdjustmentOptions) *Adjustment {
	opts.Amount = ptr(d(amt))
	adj, err := s.checkout.Adjustment(opts)
	s.Require().NoError(err)
	return adj
}

func (s *CheckoutPricingSuite) TestSubscriptionsWithoutCommonCurrency() {
	s.embed("basic")
	euro := s.newSubscription("eur-only")
	rec := record(s.checkout, events.ErrorFor("subscription"))

	_, err := s.checkout.Subscription(s.GetContext(), euro)
	s.True(ierr.IsInvalidSubscriptionCurrency(err))
	s.False(euro.IsEmbedded())
	s.Len(s.checkout.Items().Subscriptions, 1)
	s.Equal(1, rec.count(events.ErrorFor("subscription")))
}

func (s *CheckoutPricingSuite) TestSubscriptionValidation() {
	_, err := s.checkout.Subscription(s.GetContext(), nil)
	s.True(ierr.IsInvalidOption(err))

	_, err = s.checkout.Subscription(s.GetContext(), s.factory.NewSubscription())
	s.True(ierr.IsInvalidOption(err))

	sub := s.embed("basic")
	_, err = s.factory.NewCheckout().Subscription(s.GetContext(), sub)
	s.True(ierr.IsInvalidOption(err))
}

func (s *CheckoutPricingSuite) TestTotalsAndItems() {
	basic := s.embed("basic")
	s.embed("twenty")
	adj := s.adjustment("10", AdjustmentOptions{Description: ptr("Installation")})

	_, err := s.checkout.Coupon(s.GetContext(), "PCT20")
	s.NoError(err)
	s.ElementsMatch([]string{"basic", "twenty"}, s.GetStores().CouponRepo.LastQuery().Plans)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("69.00", price.Now.Subscriptions)
	s.Equal("10.00", price.Now.Adjustments)
	s.Equal("13.80", price.Now.Discount)
	s.Equal("65.20", price.Now.Subtotal)
	s.Equal("0.00", price.Now.Taxes)
	s.Equal("65.20", price.Now.Total)

	s.Equal("69.00", price.Next.Subscriptions)
	s.Equal("0.00", price.Next.Adjustments)
	s.Equal("13.80", price.Next.Discount)
	s.Equal("55.20", price.Next.Subtotal)

	s.Require().Len(price.Now.Items, 3)
	s.Equal(LineItem{Type: "subscription", ID: basic.ID(), Code: "basic", Amount: "49.00", Quantity: 1}, price.Now.Items[0])
	s.Equal("adjustment", price.Now.Items[2].Type)
	s.Equal(adj.Code, price.Now.Items[2].Code)
	s.Equal("10.00", price.Now.Items[2].Amount)
	s.Len(price.Next.Items, 2)

	s.Equal("65.20", s.checkout.TotalNow())
	s.Equal("79.00", s.checkout.SubtotalPreDiscountNow())
}

func (s *CheckoutPricingSuite) TestTaxesPerTaxCode() {
	s.embed("basic")
	s.adjustment("10", AdjustmentOptions{TaxCode: ptr("digital")})
	s.adjustment("5", AdjustmentOptions{TaxExempt: ptr(true)})
	_, err := s.checkout.Address(&address.Address{Country: "GB"})
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("10.30", price.Now.Taxes)
	s.Equal("9.80", price.Next.Taxes)
	s.Equal("74.30", price.Now.Total)
	s.Len(price.Taxes, 2)
	s.Equal(1, s.GetStores().TaxRepo.Calls(""))
	s.Equal(1, s.GetStores().TaxRepo.Calls("digital"))
}

func (s *CheckoutPricingSuite) TestTaxFailureZeroesOnlyItsLines() {
	s.GetStores().TaxRepo.SetError("digital", errors.New("tax service down"))
	s.embed("basic")
	s.adjustment("10", AdjustmentOptions{TaxCode: ptr("digital")})
	_, err := s.checkout.Address(&address.Address{Country: "GB"})
	s.NoError(err)
	rec := record(s.checkout, events.Error)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("9.80", price.Now.Taxes)
	s.Equal(1, rec.count(events.Error))
}

func (s *CheckoutPricingSuite) TestRateCouponReducesTax() {
	s.embed("basic")
	_, err := s.checkout.Coupon(s.GetContext(), "PCT20")
	s.NoError(err)
	_, err = s.checkout.Address(&address.Address{Country: "GB"})
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("9.80", price.Now.Discount)
	s.Equal("39.20", price.Now.Subtotal)
	s.Equal("7.84", price.Now.Taxes)
	s.Equal("47.04", price.Now.Total)
	s.Equal("7.84", price.Next.Taxes)
}

func (s *CheckoutPricingSuite) TestSingleUseCouponSkipsNextCycle() {
	s.NoError(s.GetStores().CouponRepo.Create(s.GetContext(), &coupon.Coupon{
		Code:              "ONCEPCT",
		Discount:          coupon.Discount{Type: types.DiscountTypePercent, Rate: d("0.2")},
		SingleUse:         true,
		AppliesToAllPlans: true,
	}))
	s.embed("basic")
	_, err := s.checkout.Coupon(s.GetContext(), "ONCEPCT")
	s.NoError(err)
	_, err = s.checkout.Address(&address.Address{Country: "GB"})
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("9.80", price.Now.Discount)
	s.Equal("7.84", price.Now.Taxes)
	s.Equal("47.04", price.Now.Total)

	s.Equal("0.00", price.Next.Discount)
	s.Equal("49.00", price.Next.Subtotal)
	s.Equal("9.80", price.Next.Taxes)
}

func (s *CheckoutPricingSuite) TestSupersededCouponLookupDiscarded() {
	s.embed("basic")
	entered, release := pause(s.GetStores().CouponRepo, "PCT20")

	done := make(chan *coupon.Coupon)
	go func() {
		c, err := s.checkout.Coupon(s.GetContext(), "PCT20")
		s.NoError(err)
		done <- c
	}()

	<-entered
	s.NoError(s.checkout.Remove(s.GetContext(), RemoveOptions{Item: ItemCoupon}))
	release()

	s.Nil(<-done)
	s.Nil(s.checkout.Items().Coupon)
}

func (s *CheckoutPricingSuite) TestSupersededGiftCardLookupDiscarded() {
	s.NoError(s.GetStores().GiftCardRepo.Create(s.GetContext(),
		&giftcard.GiftCard{Code: "GC5", Currency: "USD", UnitAmount: d("5")}))
	sub := s.embed("basic")
	entered, release := pause(s.GetStores().GiftCardRepo, "GC15")

	done := make(chan *giftcard.GiftCard)
	go func() {
		g, err := s.checkout.GiftCard(s.GetContext(), "GC15")
		s.NoError(err)
		done <- g
	}()

	<-entered
	// embedded subscriptions forward to the checkout and share its token
	g, err := sub.GiftCard(s.GetContext(), "GC5")
	s.NoError(err)
	s.Equal("GC5", g.Code)
	release()

	s.Nil(<-done)
	s.Equal("GC5", s.checkout.Items().GiftCard.Code)
}

func (s *CheckoutPricingSuite) TestTaxOverrideRoundsPlainly() {
	s.embed("basic")
	_, err := s.checkout.Tax(&tax.Tax{Amount: &tax.Amount{Now: d("3.333"), Next: d("3.335")}})
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("3.33", price.Now.Taxes)
	s.Equal("3.34", price.Next.Taxes)
}

func (s *CheckoutPricingSuite) TestSingleSubscriptionCoupon() {
	s.embed("twenty")
	s.embed("basic")
	_, err := s.checkout.Coupon(s.GetContext(), "HALFONE")
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("24.50", price.Now.Discount)
	s.Equal("24.50", price.Next.Discount)
}

func (s *CheckoutPricingSuite) TestCouponForNonPlanCharges() {
	s.adjustment("10", AdjustmentOptions{})

	_, err := s.checkout.Coupon(s.GetContext(), "PCT20")
	s.True(ierr.IsInvalidCouponForSubscription(err))

	_, err = s.checkout.Coupon(s.GetContext(), "CHARGES")
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("3.00", price.Now.Discount)
	s.Equal("7.00", price.Now.Subtotal)
	s.Equal("0.00", price.Next.Discount)
}

func (s *CheckoutPricingSuite) TestCouponWithoutItems() {
	_, err := s.checkout.Coupon(s.GetContext(), "PCT20")
	s.True(ierr.IsMissingPlan(err))
}

func (s *CheckoutPricingSuite) TestFreeTrialGoesToLongestTrial() {
	short := s.embed("short")
	long := s.embed("long")
	_, err := s.checkout.Coupon(s.GetContext(), "TRIAL")
	s.NoError(err)

	_, err = s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Require().NotNil(long.Items().Coupon)
	s.Equal("TRIAL", long.Items().Coupon.Code)
	s.Nil(short.Items().Coupon)

	_, err = s.checkout.Coupon(s.GetContext(), "TRIALALL")
	s.NoError(err)
	_, err = s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.NotNil(long.Items().Coupon)
	s.NotNil(short.Items().Coupon)
}

func (s *CheckoutPricingSuite) TestFreeTrialTieBreaksOnSubtotal() {
	twenty := s.embed("twenty")
	basic := s.embed("basic")
	_, err := s.checkout.Coupon(s.GetContext(), "TRIAL")
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.NotNil(basic.Items().Coupon)
	s.Nil(twenty.Items().Coupon)
	s.Equal("20.00", price.Now.Subscriptions)
	s.Equal("69.00", price.Next.Subscriptions)
	s.Equal("0.00", price.Now.Discount)
}

func (s *CheckoutPricingSuite) TestCurrency() {
	first := s.embed("multi")
	second := s.embed("multi")

	code, err := s.checkout.Currency("EUR")
	s.NoError(err)
	s.Equal("EUR", code)
	s.Equal("EUR", first.CurrencyCode())
	s.Equal("EUR", second.CurrencyCode())

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("24.00", price.Now.Subscriptions)
	s.Equal("€", price.Currency.Symbol)

	// a USD only subscription moves everything back to USD
	s.embed("basic")
	s.Equal("USD", s.checkout.CurrencyCode())
	s.Equal("USD", first.CurrencyCode())

	_, err = s.checkout.Currency("EUR")
	s.True(ierr.IsInvalidSubscriptionCurrency(err))
	s.Equal("USD", s.checkout.CurrencyCode())
}

func (s *CheckoutPricingSuite) TestEmbeddedPlanChange() {
	sub := s.embed("multi")
	_, err := sub.Plan(s.GetContext(), "eur-only")
	s.NoError(err)
	s.Equal("EUR", s.checkout.CurrencyCode())

	other := s.newSubscription("multi")
	_, err = s.checkout.Subscription(s.GetContext(), other)
	s.NoError(err)

	// no currency left in common with the euro only subscription
	_, err = other.Plan(s.GetContext(), "basic")
	s.True(ierr.IsInvalidSubscriptionCurrency(err))
	s.Equal("multi", other.Items().Plan.Code)
}

func (s *CheckoutPricingSuite) TestGiftCard() {
	s.embed("basic")
	_, err := s.checkout.GiftCard(s.GetContext(), "GC15")
	s.NoError(err)

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("15.00", price.Now.GiftCard)
	s.Equal("34.00", price.Now.Total)
	s.Equal("0.00", price.Next.GiftCard)
	s.Equal("49.00", price.Next.Total)

	_, err = s.checkout.GiftCard(s.GetContext(), "GCEUR")
	s.True(ierr.IsGiftCardCurrencyMismatch(err))
	s.Nil(s.checkout.Items().GiftCard)
}

func (s *CheckoutPricingSuite) TestEmbeddedSubscriptionForwardsSharedItems() {
	sub := s.newSubscription("basic")
	_, err := sub.Address(&address.Address{Country: "US"})
	s.NoError(err)
	_, err = s.checkout.Subscription(s.GetContext(), sub)
	s.NoError(err)
	s.Nil(sub.Items().Address)

	_, err = sub.Address(&address.Address{Country: "GB"})
	s.NoError(err)
	s.Nil(sub.Items().Address)
	s.Equal("GB", s.checkout.Items().Address.Country)

	_, err = sub.Coupon(s.GetContext(), "PCT20")
	s.NoError(err)
	s.Nil(sub.Items().Coupon)
	s.Equal("PCT20", s.checkout.Items().Coupon.Code)

	_, err = sub.Currency("EUR")
	s.True(ierr.IsInvalidSubscriptionCurrency(err))

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("7.84", price.Now.Taxes)
	// the subscription itself carries no tax inside a checkout
	s.Equal(sub.Price().Now.Subtotal, sub.Price().Now.Total)
}

func (s *CheckoutPricingSuite) TestAdjustments() {
	adj := s.adjustment("10", AdjustmentOptions{})
	s.True(strings.HasPrefix(adj.Code, "ADJ-"))
	s.Equal(1, adj.Quantity)
	s.Equal("USD", adj.Currency)

	updated, err := s.checkout.Adjustment(AdjustmentOptions{Code: adj.Code, Quantity: ptr(3)})
	s.NoError(err)
	s.Equal(3, updated.Quantity)
	s.True(updated.Amount.Equal(d("10")))
	s.Len(s.checkout.Items().Adjustments, 1)

	_, err = s.checkout.Adjustment(AdjustmentOptions{Code: "new"})
	s.True(ierr.IsInvalidOption(err))
	_, err = s.checkout.Adjustment(AdjustmentOptions{Code: adj.Code, Quantity: ptr(0)})
	s.True(ierr.IsInvalidOption(err))
	_, err = s.checkout.Adjustment(AdjustmentOptions{Amount: ptr(d("1")), Currency: "EUR"})
	s.True(ierr.IsInvalidCurrency(err))

	price, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal("30.00", price.Now.Adjustments)
	s.Equal("0.00", price.Next.Total)
}

func (s *CheckoutPricingSuite) TestRemove() {
	sub := s.embed("basic")
	adj := s.adjustment("10", AdjustmentOptions{})

	s.NoError(s.checkout.Remove(s.GetContext(), RemoveOptions{Item: ItemSubscription, Code: sub.ID()}))
	s.False(sub.IsEmbedded())
	s.Empty(s.checkout.Items().Subscriptions)

	s.NoError(s.checkout.Remove(s.GetContext(), RemoveOptions{Item: ItemAdjustment, Code: adj.Code}))
	s.Empty(s.checkout.Items().Adjustments)

	err := s.checkout.Remove(s.GetContext(), RemoveOptions{Item: ItemSubscription, Code: "missing"})
	s.True(ierr.IsInvalidItem(err))
	err = s.checkout.Remove(s.GetContext(), RemoveOptions{Item: ItemCurrency})
	s.True(ierr.IsUnremovableItem(err))
	s.NoError(s.checkout.Remove(s.GetContext(), RemoveOptions{Item: ItemCoupon}))
}

func (s *CheckoutPricingSuite) TestResetReleasesSubscriptions() {
	sub := s.embed("basic")
	_, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)

	s.checkout.Reset()
	s.False(sub.IsEmbedded())
	s.Nil(s.checkout.Price())
	s.Empty(s.checkout.Items().Subscriptions)
}

func (s *CheckoutPricingSuite) TestRepriceEvents() {
	s.embed("basic")
	rec := record(s.checkout, events.Change, events.ChangeExternal)

	_, err := s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	_, err = s.checkout.Reprice(s.GetContext())
	s.NoError(err)
	s.Equal(2, rec.count(events.Change))
	s.Equal(1, rec.count(events.ChangeExternal))
}
