package cache

import (
	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/logger"
)

// Initialize builds the lookup cache from configuration
func Initialize(cfg *config.Configuration, log *logger.Logger) Cache {
	log.Infow("initializing lookup cache",
		"enabled", cfg.Cache.Enabled,
		"ttl", cfg.Cache.TTL.String(),
	)
	return NewInMemoryCache(cfg.Cache)
}
