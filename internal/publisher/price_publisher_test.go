package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/events"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/flexprice/checkout-pricing/internal/pubsub/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	*events.Emitter
}

func (fakeSource) ID() string   { return "subp_1" }
func (fakeSource) Kind() string { return "subscription" }

func TestAttachForwardsExternalChanges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.GetDefaultConfig()
	cfg.Events.Enabled = true
	log := logger.NewNoopLogger()

	ps := memory.NewPubSub(cfg, log)
	defer ps.Close()

	msgs, err := ps.Subscribe(ctx, cfg.Events.Topic)
	require.NoError(t, err)

	src := fakeSource{Emitter: events.NewEmitter()}
	detach := NewPricePublisher(ps, cfg, log).Attach(ctx, src)

	src.Publish(events.Change, map[string]string{"total": "ignored"})
	src.Publish(events.ChangeExternal, map[string]string{"total": "10.00"})

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, "subp_1", msg.Metadata.Get("pricing_id"))
		assert.Equal(t, "subscription", msg.Metadata.Get("kind"))

		var body struct {
			PricingID string            `json:"pricing_id"`
			Price     map[string]string `json:"price"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &body))
		assert.Equal(t, "10.00", body.Price["total"])
	case <-ctx.Done():
		t.Fatal("no message forwarded")
	}

	detach()
	assert.Equal(t, 0, src.Len(events.ChangeExternal))
}

func TestAttachDisabled(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Events.Enabled = false
	log := logger.NewNoopLogger()

	src := fakeSource{Emitter: events.NewEmitter()}
	detach := NewPricePublisher(memory.NewPubSub(cfg, log), cfg, log).Attach(context.Background(), src)
	defer detach()

	assert.Equal(t, 0, src.Len(events.ChangeExternal))
}
