package internal

import (
	"sjsage522/pricetracker/internal/store"
	"sjsage522/pricetracker/logger"
	"sjsage522/pricetracker/services/cache"
	"sjsage522/pricetracker/services/publisher"
)

// Dependencies holds all service dependencies.
// Cache and Publisher are nil when their backends are not configured.
type Dependencies struct {
	Repository store.Repository
	Cache      cache.CacheService
	Publisher  publisher.Publisher
}

// Cleanup closes every open connection
func (d *Dependencies) Cleanup() {
	if d == nil {
		return
	}
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.LogError("Cleanup", err, "failed to close publisher")
		}
	}
	if d.Repository != nil {
		d.Repository.Close()
	}
}
