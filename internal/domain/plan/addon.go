package plan

import (
	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/shopspring/decimal"
)

// AddOn is an optional extra sold on top of a plan
type AddOn struct {
	Code      string                `json:"code"`
	Name      string                `json:"name"`
	AddOnType types.AddOnType       `json:"add_on_type"`
	TierType  types.TierType        `json:"tier_type"`
	Quantity  int                   `json:"quantity"` // default quantity when selected without one
	Price     map[string]AddOnPrice `json:"price"`
	Tiers     []Tier                `json:"tiers,omitempty"`
}

type AddOnPrice struct {
	UnitAmount decimal.Decimal `json:"unit_amount"`
}

// Tier is one row of a tier table. EndingQuantity of zero marks the
// unbounded last tier.
type Tier struct {
	EndingQuantity int            `json:"ending_quantity"`
	Currencies     []TierCurrency `json:"currencies"`
}

type TierCurrency struct {
	CurrencyCode string          `json:"currency_code"`
	UnitAmount   decimal.Decimal `json:"unit_amount"`
}

func (t Tier) unitAmount(currency string) (decimal.Decimal, bool) {
	for _, c := range t.Currencies {
		if c.CurrencyCode == currency {
			return c.UnitAmount, true
		}
	}
	return decimal.Zero, false
}

func (t Tier) covers(qty int) bool {
	return t.EndingQuantity <= 0 || qty <= t.EndingQuantity
}

// IsFixed reports whether the add-on is priced up front
func (a *AddOn) IsFixed() bool {
	return a.AddOnType == "" || a.AddOnType == types.AddOnTypeFixed
}

// IsTiered reports whether the add-on is priced from its tier table
func (a *AddOn) IsTiered() bool {
	return a.IsFixed() && a.TierType != "" && a.TierType != types.TierTypeFlat
}

// tierStart is the first quantity tier i covers
func (a *AddOn) tierStart(i int) int {
	if i == 0 {
		return 1
	}
	return a.Tiers[i-1].EndingQuantity + 1
}

// tierAmount is the contribution of tier i. It reports false when the tier
// has no price in currency or the quantity never reaches it.
func (a *AddOn) tierAmount(i, qty int, currency string) (decimal.Decimal, bool) {
	tier := a.Tiers[i]
	unit, ok := tier.unitAmount(currency)
	if !ok {
		return decimal.Zero, false
	}

	start := a.tierStart(i)
	if start > qty {
		return decimal.Zero, false
	}

	switch a.TierType {
	case types.TierTypeTiered:
		end := qty
		if !tier.covers(qty) {
			end = tier.EndingQuantity
		}
		return unit.Mul(decimal.NewFromInt(int64(end - start + 1))), true
	case types.TierTypeVolume:
		if !tier.covers(qty) {
			return decimal.Zero, false
		}
		return unit.Mul(decimal.NewFromInt(int64(qty))), true
	case types.TierTypeStairstep:
		if !tier.covers(qty) {
			return decimal.Zero, false
		}
		return unit, true
	default:
		return decimal.Zero, false
	}
}

// TieredTotal sums the contribution of every tier for qty in currency
func (a *AddOn) TieredTotal(qty int, currency string) decimal.Decimal {
	total := decimal.Zero
	for i := range a.Tiers {
		if amount, ok := a.tierAmount(i, qty, currency); ok {
			total = total.Add(amount)
		}
	}
	return total
}

// TieredUnitAmount returns the unit amount of the tier qty falls in, the
// marginal price shown next to the quantity
func (a *AddOn) TieredUnitAmount(qty int, currency string) decimal.Decimal {
	if qty <= 0 {
		qty = 1
	}
	for _, tier := range a.Tiers {
		if !tier.covers(qty) {
			continue
		}
		unit, _ := tier.unitAmount(currency)
		return unit
	}
	return decimal.Zero
}

// UnitAmount returns the display unit price for qty in currency
func (a *AddOn) UnitAmount(qty int, currency string) decimal.Decimal {
	if a.IsTiered() {
		return a.TieredUnitAmount(qty, currency)
	}
	return a.Price[currency].UnitAmount
}

// Amount returns the price of qty units in currency
func (a *AddOn) Amount(qty int, currency string) decimal.Decimal {
	if a.IsTiered() {
		return a.TieredTotal(qty, currency)
	}
	return a.Price[currency].UnitAmount.Mul(decimal.NewFromInt(int64(qty)))
}

func (a *AddOn) Clone() *AddOn {
	if a == nil {
		return nil
	}
	c := *a
	c.Price = make(map[string]AddOnPrice, len(a.Price))
	for k, v := range a.Price {
		c.Price[k] = v
	}
	c.Tiers = make([]Tier, len(a.Tiers))
	for i, t := range a.Tiers {
		c.Tiers[i] = Tier{
			EndingQuantity: t.EndingQuantity,
			Currencies:     append([]TierCurrency(nil), t.Currencies...),
		}
	}
	return &c
}
