package api

import (
	"context"
	"net/url"

	domainTax "github.com/flexprice/checkout-pricing/internal/domain/tax"
)

type taxRepository struct {
	client *Client
}

func NewTaxRepository(client *Client) domainTax.Repository {
	return &taxRepository{client: client}
}

func (r *taxRepository) Rates(ctx context.Context, q domainTax.Query) ([]domainTax.Rate, error) {
	query := url.Values{}
	set := func(k, v string) {
		if v != "" {
			query.Set(k, v)
		}
	}
	set("country", q.Country)
	set("postal_code", q.PostalCode)
	set("vat_number", q.VatNumber)
	set("tax_code", q.TaxCode)

	var rates []domainTax.Rate
	if err := r.client.get(ctx, "/tax", query, &rates, "tax", q.Country); err != nil {
		return nil, err
	}
	return rates, nil
}
