package tax

import (
	"testing"

	"github.com/flexprice/checkout-pricing/internal/domain/address"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	billing := &address.Address{Country: "GB", PostalCode: "SW1A"}
	shipping := &address.Address{Country: "US", PostalCode: "94110"}

	tests := []struct {
		name     string
		shipping *address.Address
		billing  *address.Address
		tax      *Tax
		want     Query
	}{
		{"nothing", nil, nil, nil, Query{}},
		{"billing only", nil, billing, nil, Query{Country: "GB", PostalCode: "SW1A"}},
		{"shipping wins", shipping, billing, nil, Query{Country: "US", PostalCode: "94110"}},
		{"empty shipping ignored", &address.Address{}, billing, nil, Query{Country: "GB", PostalCode: "SW1A"}},
		{
			"tax fields refine",
			nil, billing,
			&Tax{TaxCode: "digital", VatNumber: "GB123"},
			Query{Country: "GB", PostalCode: "SW1A", VatNumber: "GB123", TaxCode: "digital"},
		},
		{"tax code alone", nil, nil, &Tax{TaxCode: "digital"}, Query{TaxCode: "digital"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildQuery(tt.shipping, tt.billing, tt.tax)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == Query{}, got.IsEmpty())
		})
	}
}

func TestDedupe(t *testing.T) {
	vat := Rate{Type: "vat", Rate: decimal.RequireFromString("0.2"), Region: "GB"}
	sales := Rate{Type: "us", Rate: decimal.RequireFromString("0.0875"), Region: "CA"}
	vatAgain := Rate{Type: "vat", Rate: decimal.RequireFromString("0.20"), Region: "GB"}

	assert.Equal(t, []Rate{vat, sales}, Dedupe([]Rate{vat, sales, vatAgain}))
	assert.Empty(t, Dedupe(nil))
}
