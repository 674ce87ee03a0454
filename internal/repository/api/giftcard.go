package api

import (
	"context"
	"net/url"

	domainGiftCard "github.com/flexprice/checkout-pricing/internal/domain/giftcard"
)

type giftCardRepository struct {
	client *Client
}

func NewGiftCardRepository(client *Client) domainGiftCard.Repository {
	return &giftCardRepository{client: client}
}

func (r *giftCardRepository) Get(ctx context.Context, code string) (*domainGiftCard.GiftCard, error) {
	var g domainGiftCard.GiftCard
	if err := r.client.get(ctx, "/gift_cards/"+url.PathEscape(code), nil, &g, "gift card", code); err != nil {
		return nil, err
	}
	if g.Code == "" {
		g.Code = code
	}
	return &g, nil
}
