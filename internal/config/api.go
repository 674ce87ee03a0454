package config

import "time"

// APIConfig configures the remote plan, coupon, gift card and tax lookups
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	PublicKey  string        `mapstructure:"public_key"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"required"`
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0"`
	// RateLimit is the number of requests per second, zero disables throttling
	RateLimit float64 `mapstructure:"rate_limit" validate:"min=0"`
	Burst     int     `mapstructure:"burst" validate:"min=0"`
}
