package publisher

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/pubsub"
	"github.com/flexprice/checkout-pricing/internal/types"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source is a pricing instance whose external changes can be forwarded
type Source interface {
	ID() string
	Kind() string
	Subscribe(event string, h events.Handler) events.Token
	Unsubscribe(t events.Token) bool
}

// PriceChangedEvent is the message body of a forwarded change
type PriceChangedEvent struct {
	ID        string    `json:"id"`
	PricingID string    `json:"pricing_id"`
	Kind      string    `json:"kind"`
	Price     any       `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PricePublisher forwards change:external events of pricing instances onto
// the message bus
type PricePublisher interface {
	// Attach starts forwarding changes of src and returns a func that stops it
	Attach(ctx context.Context, src Source) (detach func())
	Publish(ctx context.Context, event *PriceChangedEvent) error
	Close() error
}

type pricePublisher struct {
	pubSub pubsub.Publisher
	config *config.EventsConfig
	logger *logger.Logger
}

// NewPricePublisher creates a publisher. When events are disabled Attach is
// a no-op.
func NewPricePublisher(
	pubSub pubsub.Publisher,
	cfg *config.Configuration,
	logger *logger.Logger,
) PricePublisher {
	return &pricePublisher{
		pubSub: pubSub,
		config: &cfg.Events,
		logger: logger,
	}
}

func (p *pricePublisher) Attach(ctx context.Context, src Source) func() {
	if !p.config.Enabled {
		return func() {}
	}

	tok := src.Subscribe(events.ChangeExternal, func(payload any) {
		event := &PriceChangedEvent{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRICE_EVENT),
			PricingID: src.ID(),
			Kind:      src.Kind(),
			Price:     payload,
			Timestamp: time.Now().UTC(),
		}
		// failures are logged by Publish and never reach the pricing instance
		_ = p.Publish(ctx, event)
	})

	return func() { src.Unsubscribe(tok) }
}

func (p *pricePublisher) Publish(ctx context.Context, event *PriceChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.ID)
	msg.Metadata.Set("pricing_id", event.PricingID)
	msg.Metadata.Set("kind", event.Kind)

	log := p.logger.With(
		zap.String("event_id", event.ID),
		zap.String("pricing_id", event.PricingID),
		zap.String("topic", p.config.Topic),
	)
	log.Debug("publishing price change")

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		log.Errorw("failed to publish price change", "error", err)
		return err
	}
	return nil
}

// Close closes the publisher
func (p *pricePublisher) Close() error {
	return p.pubSub.Close()
}
