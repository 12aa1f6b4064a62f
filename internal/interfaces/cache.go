package interfaces

import (
	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache is a single named cache store keyed by request URL
type Cache interface {
	Get(key string) (*models.CacheEntry, bool) // returns entry and found flag
	Put(key string, entry *models.CacheEntry) error
	Delete(key string)
	Keys() ([]string, error)
}

// LevelAwareCache reports which storage level answered a lookup
type LevelAwareCache interface {
	Cache
	GetWithLevel(key string) models.LookupResult
}

// CacheStorage holds every named cache store, one per generation
type CacheStorage interface {
	// Open returns the named store, creating it when missing
	Open(name string) (Cache, error)
	// Names lists every existing store name
	Names() ([]string, error)
	// Delete removes the named store with all of its entries; reports whether it existed
	Delete(name string) (bool, error)
}
