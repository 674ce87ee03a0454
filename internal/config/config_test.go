package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "USD", cfg.Pricing.DefaultCurrency)
	assert.Equal(t, int32(2), cfg.Pricing.Digits)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
	}{
		{"currency too long", func(c *Configuration) { c.Pricing.DefaultCurrency = "DOLLAR" }},
		{"digits out of range", func(c *Configuration) { c.Pricing.Digits = 9 }},
		{"base url missing", func(c *Configuration) { c.API.BaseURL = "" }},
		{"unknown log level", func(c *Configuration) { c.Logging.Level = "verbose" }},
		{"events without topic", func(c *Configuration) {
			c.Events.Enabled = true
			c.Events.Topic = ""
		}},
		{"sentry without dsn", func(c *Configuration) { c.Sentry.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewConfigEnvOverride(t *testing.T) {
	t.Setenv("PRICING_PRICING_DEFAULT_CURRENCY", "EUR")
	t.Setenv("PRICING_API_TIMEOUT", "3s")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Pricing.DefaultCurrency)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, "pricing.changes", cfg.Events.Topic)
}
