// Package pricing computes live subscription and checkout prices from a
// mutable selection of plan, add-ons, coupon, address, tax and gift card.
package pricing

import (
	"sync"

	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/domain/coupon"
	"github.com/flexprice/checkout-pricing/internal/domain/giftcard"
	"github.com/flexprice/checkout-pricing/internal/domain/plan"
	"github.com/flexprice/checkout-pricing/internal/domain/tax"
	ierr "github.com/flexprice/checkout-pricing/internal/errors"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/types"
)

const (
	KindSubscription = "subscription"
	KindCheckout     = "checkout"
)

// Deps are the collaborators shared by every pricing instance
type Deps struct {
	Plans     plan.Repository
	Coupons   coupon.Repository
	GiftCards giftcard.Repository
	Taxes     tax.Repository
	Logger    *logger.Logger
	Config    config.PricingConfig
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.NewNoopLogger()
	}
	// a zero config means none was given; an explicit config keeps its digits
	if d.Config == (config.PricingConfig{}) {
		d.Config = config.GetDefaultConfig().Pricing
	}
	if d.Config.DefaultCurrency == "" {
		d.Config.DefaultCurrency = "USD"
	}
	return d
}

// Factory creates pricing instances bound to one set of dependencies
type Factory struct {
	deps Deps
}

func NewFactory(deps Deps) *Factory {
	return &Factory{deps: deps.withDefaults()}
}

// NewSubscription returns an empty subscription pricing
func (f *Factory) NewSubscription() *SubscriptionPricing {
	return NewSubscriptionPricing(f.deps)
}

// NewCheckout returns an empty checkout pricing
func (f *Factory) NewCheckout() *CheckoutPricing {
	return NewCheckoutPricing(f.deps)
}

// base is the state every pricing instance shares. mu guards the items,
// the last price and the lookup tokens of the embedding type.
type base struct {
	mu      sync.Mutex
	id      string
	kind    string
	deps    Deps
	log     *logger.Logger
	emitter *events.Emitter
}

func (b *base) init(kind, prefix string, deps Deps) {
	b.deps = deps.withDefaults()
	b.id = types.GenerateUUIDWithPrefix(prefix)
	b.kind = kind
	b.log = b.deps.Logger.With("pricing_id", b.id, "kind", kind)
	b.emitter = events.NewEmitter()
}

// ID returns the unique identifier of the instance
func (b *base) ID() string { return b.id }

// Kind returns subscription or checkout
func (b *base) Kind() string { return b.kind }

// Subscribe registers h for event. See package events for the names.
func (b *base) Subscribe(event string, h events.Handler) events.Token {
	return b.emitter.Subscribe(event, h)
}

// Unsubscribe removes a handler registered with Subscribe
func (b *base) Unsubscribe(t events.Token) bool {
	return b.emitter.Unsubscribe(t)
}

func (b *base) digits() int32 {
	return b.deps.Config.Digits
}

func (b *base) emit(event string, payload any) {
	b.emitter.Publish(event, payload)
}

// fail reports a rejected operation on field and returns err
func (b *base) fail(field string, err error) error {
	b.log.Errorw("pricing operation rejected",
		"field", field,
		"code", ierr.Code(err),
		"error", err,
	)
	b.emit(events.Error, err)
	b.emit(events.ErrorFor(field), err)
	return err
}

// softError reports a failure that does not abort the current operation
func (b *base) softError(msg string, err error, keyvals ...interface{}) {
	b.log.Warnw(msg, append(keyvals, "error", err)...)
	b.emit(events.Error, err)
}

func invalidOption(msg string, details map[string]any) error {
	return ierr.NewError(msg).
		WithHint(msg).
		WithReportableDetails(details).
		Mark(ierr.ErrInvalidOption)
}

// QuantityOption sets the quantity of a plan or add-on selection
type QuantityOption func(*quantityOptions)

type quantityOptions struct {
	quantity int
	set      bool
}

// WithQuantity selects n units
func WithQuantity(n int) QuantityOption {
	return func(o *quantityOptions) {
		o.quantity = n
		o.set = true
	}
}

func applyQuantity(opts []QuantityOption) quantityOptions {
	var o quantityOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RepriceOption tunes a single reprice
type RepriceOption func(*repriceOptions)

type repriceOptions struct {
	internal bool
}

// WithInternal marks a reprice triggered by the library itself. Internal
// reprices never fire change:external.
func WithInternal() RepriceOption {
	return func(o *repriceOptions) { o.internal = true }
}

func applyReprice(opts []RepriceOption) repriceOptions {
	var o repriceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
