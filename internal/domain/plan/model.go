package plan

import (
	"slices"

	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Plan is a subscription plan as served by the plans endpoint. Quantity is the
// selected seat count and is owned by whichever pricing instance holds the plan.
type Plan struct {
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Quantity  int                  `json:"quantity"`
	Price     map[string]PlanPrice `json:"price"`
	Trial     *Trial               `json:"trial,omitempty"`
	TaxExempt bool                 `json:"tax_exempt"`
	TaxCode   string               `json:"tax_code,omitempty"`
	Addons    []*AddOn             `json:"addons,omitempty"`
}

// PlanPrice is the per currency price of a plan
type PlanPrice struct {
	UnitAmount decimal.Decimal `json:"unit_amount"`
	SetupFee   decimal.Decimal `json:"setup_fee"`
}

// Trial describes a trial period, e.g. 14 days or 1 month
type Trial struct {
	Interval types.TrialInterval `json:"interval"`
	Length   int                 `json:"length"`
}

// Seconds returns the trial length in seconds
func (t *Trial) Seconds() int64 {
	if t == nil {
		return 0
	}
	return t.Interval.Seconds(t.Length)
}

// HasTrial reports whether the plan starts with a non empty trial
func (p *Plan) HasTrial() bool {
	return p.Trial != nil && p.Trial.Length > 0
}

// SupportsCurrency reports whether the plan is priced in code
func (p *Plan) SupportsCurrency(code string) bool {
	_, ok := p.Price[code]
	return ok
}

// Currencies returns the currency codes the plan is priced in, sorted
func (p *Plan) Currencies() []string {
	codes := lo.Keys(p.Price)
	slices.Sort(codes)
	return codes
}

// AddOn returns the catalog add-on with the given code
func (p *Plan) AddOn(code string) (*AddOn, bool) {
	return lo.Find(p.Addons, func(a *AddOn) bool {
		return a.Code == code
	})
}

// Clone returns a deep copy so callers can change the quantity without
// touching a cached plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Price = make(map[string]PlanPrice, len(p.Price))
	for k, v := range p.Price {
		c.Price[k] = v
	}
	if p.Trial != nil {
		t := *p.Trial
		c.Trial = &t
	}
	c.Addons = lo.Map(p.Addons, func(a *AddOn, _ int) *AddOn {
		return a.Clone()
	})
	return &c
}
