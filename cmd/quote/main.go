// Command quote prices a subscription, or a checkout of several, against
// the remote pricing API and prints the result.
//
//	quote -plan basic -quantity 2 -addons extra:3 -coupon WELCOME -country GB
//	quote -plan basic,support -currency EUR -debug
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flexprice/checkout-pricing/internal/cache"
	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/domain/address"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/httpclient"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/pricing"
	"github.com/flexprice/checkout-pricing/internal/publisher"
	"github.com/flexprice/checkout-pricing/internal/pubsub"
	"github.com/flexprice/checkout-pricing/internal/pubsub/memory"
	"github.com/flexprice/checkout-pricing/internal/repository/api"
	"github.com/flexprice/checkout-pricing/internal/repository/cached"
	"github.com/flexprice/checkout-pricing/internal/sentry"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/k0kubun/pp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func init() {
	time.Local = time.UTC
}

func main() {
	// a missing .env is fine, the environment and config file still apply
	_ = godotenv.Load()

	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var q *quoter
	app := fx.New(
		fx.Supply(f),
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.Initialize,

			// HTTP Client
			provideHTTPClient,
			provideAPIClient,

			// Pricing
			providePricingDeps,
			pricing.NewFactory,

			// PubSub
			memory.NewPubSub,
			providePublisher,
			publisher.NewPricePublisher,

			newQuoter,
		),
		sentry.Module(),
		fx.WithLogger(func(log *logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Desugar()}
		}),
		fx.Populate(&q),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runErr := q.run(context.Background(), os.Stdout)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		q.logger.Errorw("failed to stop cleanly", "error", err)
	}

	if runErr != nil {
		_ = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stderr).Encode(ierr.NewErrorResponse(runErr))
		os.Exit(1)
	}
}

func provideHTTPClient(cfg *config.Configuration, log *logger.Logger) httpclient.Client {
	return httpclient.NewDefaultClient(cfg.API, log)
}

func provideAPIClient(http httpclient.Client, cfg *config.Configuration, log *logger.Logger) *api.Client {
	return api.NewClient(http, cfg.API, log)
}

// providePricingDeps puts the read-through cache in front of every lookup
// except gift cards, whose balance moves
func providePricingDeps(client *api.Client, c cache.Cache, cfg *config.Configuration, log *logger.Logger) pricing.Deps {
	return pricing.Deps{
		Plans:     cached.NewPlanRepository(api.NewPlanRepository(client), c, log),
		Coupons:   cached.NewCouponRepository(api.NewCouponRepository(client), c, log),
		GiftCards: api.NewGiftCardRepository(client),
		Taxes:     cached.NewTaxRepository(api.NewTaxRepository(client), c, log),
		Logger:    log,
		Config:    cfg.Pricing,
	}
}

func providePublisher(ps pubsub.PubSub) pubsub.Publisher {
	return ps
}

type addonFlag struct {
	code     string
	quantity *int
}

type quoteFlags struct {
	plans      []string
	quantity   int
	addons     []addonFlag
	coupon     string
	giftCard   string
	country    string
	postalCode string
	vatNumber  string
	currency   string
	debug      bool
}

func parseFlags(args []string) (*quoteFlags, error) {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	var (
		f      quoteFlags
		plans  string
		addons string
	)
	fs.StringVar(&plans, "plan", "", "plan code; a comma separated list prices a checkout")
	fs.IntVar(&f.quantity, "quantity", 1, "plan quantity")
	fs.StringVar(&addons, "addons", "", "add-ons of the first plan as code[:quantity],...")
	fs.StringVar(&f.coupon, "coupon", "", "coupon code")
	fs.StringVar(&f.giftCard, "gift-card", "", "gift card code")
	fs.StringVar(&f.country, "country", "", "billing country")
	fs.StringVar(&f.postalCode, "postal-code", "", "billing postal code")
	fs.StringVar(&f.vatNumber, "vat-number", "", "billing VAT number")
	fs.StringVar(&f.currency, "currency", "", "ISO 4217 currency code")
	fs.BoolVar(&f.debug, "debug", false, "pretty print the full price")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, code := range strings.Split(plans, ",") {
		if code = strings.TrimSpace(code); code != "" {
			f.plans = append(f.plans, code)
		}
	}
	if len(f.plans) == 0 {
		return nil, fmt.Errorf("-plan is required")
	}

	for _, raw := range strings.Split(addons, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		code, qty, found := strings.Cut(raw, ":")
		a := addonFlag{code: code}
		if found {
			n, err := strconv.Atoi(qty)
			if err != nil {
				return nil, fmt.Errorf("invalid quantity for add-on %s: %w", code, err)
			}
			a.quantity = &n
		}
		f.addons = append(f.addons, a)
	}
	return &f, nil
}

func (f *quoteFlags) address() *address.Address {
	a := &address.Address{Country: f.country, PostalCode: f.postalCode, VatNumber: f.vatNumber}
	if a.IsEmpty() {
		return nil
	}
	return a
}

type quoter struct {
	flags     *quoteFlags
	factory   *pricing.Factory
	publisher publisher.PricePublisher
	sentry    *sentry.Service
	logger    *logger.Logger
}

func newQuoter(
	flags *quoteFlags,
	factory *pricing.Factory,
	pub publisher.PricePublisher,
	svc *sentry.Service,
	log *logger.Logger,
) *quoter {
	return &quoter{
		flags:     flags,
		factory:   factory,
		publisher: pub,
		sentry:    svc,
		logger:    log,
	}
}

func (q *quoter) run(ctx context.Context, out io.Writer) error {
	tx, ctx := q.sentry.StartTransaction(ctx, "quote")
	defer sentry.FinishSpan(tx)

	var (
		price any
		err   error
	)
	if len(q.flags.plans) == 1 {
		price, err = q.quoteSubscription(ctx)
	} else {
		price, err = q.quoteCheckout(ctx)
	}
	if err != nil {
		sentry.SetSpanStatus(tx, err)
		q.sentry.CaptureException(err)
		return err
	}
	sentry.SetSpanStatus(tx, nil)
	return q.print(out, price)
}

// subscription builds a subscription on code and selects the flag add-ons
// when withAddons is set
func (q *quoter) subscription(ctx context.Context, code string, withAddons bool) *pricing.SubscriptionChain {
	sub := q.factory.NewSubscription()
	chain := sub.Chain(ctx).Plan(code, pricing.WithQuantity(q.flags.quantity))
	if !withAddons {
		return chain
	}
	for _, a := range q.flags.addons {
		var opts []pricing.QuantityOption
		if a.quantity != nil {
			opts = append(opts, pricing.WithQuantity(*a.quantity))
		}
		chain = chain.Addon(a.code, opts...)
	}
	return chain
}

func (q *quoter) quoteSubscription(ctx context.Context) (*pricing.SubscriptionPrice, error) {
	chain := q.subscription(ctx, q.flags.plans[0], true)
	if q.flags.currency != "" {
		chain = chain.Currency(q.flags.currency)
	}
	if a := q.flags.address(); a != nil {
		chain = chain.Address(a)
	}
	if q.flags.coupon != "" {
		chain = chain.Coupon(q.flags.coupon)
	}
	if q.flags.giftCard != "" {
		chain = chain.GiftCard(q.flags.giftCard)
	}
	if err := chain.Err(); err != nil {
		return nil, err
	}

	sub := chain.Pricing()
	detach := q.publisher.Attach(ctx, sub)
	defer detach()

	span, ctx := q.sentry.StartRepriceSpan(ctx, sub.Kind(), sub.ID())
	defer sentry.FinishSpan(span)

	q.sentry.AddBreadcrumb("pricing", "quoting subscription", map[string]interface{}{"plan": q.flags.plans[0]})
	return sub.Reprice(ctx)
}

func (q *quoter) quoteCheckout(ctx context.Context) (*pricing.CheckoutPrice, error) {
	checkout := q.factory.NewCheckout()
	chain := checkout.Chain(ctx)
	for i, code := range q.flags.plans {
		sc := q.subscription(ctx, code, i == 0)
		if err := sc.Err(); err != nil {
			return nil, err
		}
		chain = chain.Subscription(sc.Pricing())
	}
	if q.flags.currency != "" {
		chain = chain.Currency(q.flags.currency)
	}
	if a := q.flags.address(); a != nil {
		chain = chain.Address(a)
	}
	if q.flags.coupon != "" {
		chain = chain.Coupon(q.flags.coupon)
	}
	if q.flags.giftCard != "" {
		chain = chain.GiftCard(q.flags.giftCard)
	}
	if err := chain.Err(); err != nil {
		return nil, err
	}

	detach := q.publisher.Attach(ctx, checkout)
	defer detach()

	span, ctx := q.sentry.StartRepriceSpan(ctx, checkout.Kind(), checkout.ID())
	defer sentry.FinishSpan(span)

	q.sentry.AddBreadcrumb("pricing", "quoting checkout", map[string]interface{}{"plans": q.flags.plans})
	return checkout.Reprice(ctx)
}

func (q *quoter) print(out io.Writer, price any) error {
	if q.flags.debug {
		_, err := pp.Fprintln(out, price)
		return err
	}
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(price)
}
