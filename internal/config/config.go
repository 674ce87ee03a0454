package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/checkout-pricing/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logging LoggingConfig `validate:"required"`
	Pricing PricingConfig `validate:"required"`
	API     APIConfig     `validate:"required"`
	Cache   CacheConfig
	Events  EventsConfig
	Sentry  SentryConfig
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// PricingConfig holds the defaults every pricing instance starts from
type PricingConfig struct {
	DefaultCurrency string `mapstructure:"default_currency" validate:"required,len=3"`
	Digits          int32  `mapstructure:"digits" validate:"min=0,max=6"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/checkout-pricing")

	setDefaults(v)

	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	def := GetDefaultConfig()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("pricing.default_currency", def.Pricing.DefaultCurrency)
	v.SetDefault("pricing.digits", def.Pricing.Digits)
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("api.max_retries", def.API.MaxRetries)
	v.SetDefault("api.rate_limit", def.API.RateLimit)
	v.SetDefault("api.burst", def.API.Burst)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("events.enabled", def.Events.Enabled)
	v.SetDefault("events.topic", def.Events.Topic)
	v.SetDefault("events.buffer_size", def.Events.BufferSize)
	v.SetDefault("sentry.enabled", def.Sentry.Enabled)
	v.SetDefault("sentry.environment", def.Sentry.Environment)
	v.SetDefault("sentry.sample_rate", def.Sentry.SampleRate)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development.
// This is useful for tests and scripts that never read a config file.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: types.LogLevelInfo},
		Pricing: PricingConfig{
			DefaultCurrency: "USD",
			Digits:          2,
		},
		API: APIConfig{
			BaseURL:    "https://api.example.com/v1",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			RateLimit:  10,
			Burst:      5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     30 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:    false,
			Topic:      "pricing.changes",
			BufferSize: 100,
		},
		Sentry: SentryConfig{
			Enabled:     false,
			Environment: "local",
			SampleRate:  1.0,
		},
	}
}
