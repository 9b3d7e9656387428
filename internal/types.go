package internal

import (
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/services/cache"
	"sjsage522/euromillionsworker/services/publisher"
	"sjsage522/euromillionsworker/services/storage"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Store     storage.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Close releases every service that holds a connection
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.LogError("publisher", err, "Failed to close publisher")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			logger.LogError("storage", err, "Failed to close store")
		}
	}
}
