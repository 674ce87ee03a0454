package tax

import (
	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/shopspring/decimal"
)

// Rate is one tax rate applying to a tax situation
type Rate struct {
	Type   string          `json:"type"`
	Rate   decimal.Decimal `json:"rate"`
	Region string          `json:"region,omitempty"`
}

// Equal compares two rates by value
func (r Rate) Equal(o Rate) bool {
	return r.Type == o.Type && r.Region == o.Region && r.Rate.Equal(o.Rate)
}

// Query is one tax situation to look rates up for
type Query struct {
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	VatNumber  string `json:"vat_number,omitempty"`
	TaxCode    string `json:"tax_code,omitempty"`
}

// IsEmpty reports whether there is nothing to look tax up for
func (q Query) IsEmpty() bool {
	return q == Query{}
}

// Amount is an explicit tax amount that replaces the looked up tax
type Amount struct {
	Now  decimal.Decimal `json:"now"`
	Next decimal.Decimal `json:"next"`
}

// Tax holds caller provided tax information. TaxCode and VatNumber refine
// the address based lookup while Amount skips it entirely.
type Tax struct {
	TaxCode   string  `json:"tax_code,omitempty"`
	VatNumber string  `json:"vat_number,omitempty"`
	Amount    *Amount `json:"amount,omitempty"`
}

func (t *Tax) Clone() *Tax {
	if t == nil {
		return nil
	}
	c := *t
	if t.Amount != nil {
		a := *t.Amount
		c.Amount = &a
	}
	return &c
}

// BuildQuery derives the lookup for a shipping address, falling back to the
// billing address, refined by the explicit tax fields.
func BuildQuery(shipping, billing *address.Address, t *Tax) Query {
	var q Query
	addr := billing
	if !shipping.IsEmpty() {
		addr = shipping
	}
	if !addr.IsEmpty() {
		q.Country = addr.Country
		q.PostalCode = addr.PostalCode
		q.VatNumber = addr.VatNumber
	}
	if t != nil {
		if t.TaxCode != "" {
			q.TaxCode = t.TaxCode
		}
		if t.VatNumber != "" {
			q.VatNumber = t.VatNumber
		}
	}
	return q
}

// Dedupe drops repeated rates keeping first occurrence order
func Dedupe(rates []Rate) []Rate {
	out := make([]Rate, 0, len(rates))
	for _, r := range rates {
		seen := false
		for _, o := range out {
			if o.Equal(r) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, r)
		}
	}
	return out
}
