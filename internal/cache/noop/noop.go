package noop

import (
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

// Ensure NoOpCache implements interfaces.Cache
var _ interfaces.Cache = (*NoOpCache)(nil)

// Ensure NoOpStorage implements interfaces.CacheStorage
var _ interfaces.CacheStorage = (*NoOpStorage)(nil)

// NoOpCache is a no-operation cache implementation for disabled caches
type NoOpCache struct{}

// NewNoOpCache creates a new no-operation cache instance
func NewNoOpCache() interfaces.Cache {
	return &NoOpCache{}
}

// Get always returns cache miss
func (n *NoOpCache) Get(key string) (*models.CacheEntry, bool) {
	return nil, false
}

// Put does nothing
func (n *NoOpCache) Put(key string, entry *models.CacheEntry) error {
	return nil
}

// Delete does nothing
func (n *NoOpCache) Delete(key string) {
	// No-op
}

// Keys always returns no keys
func (n *NoOpCache) Keys() ([]string, error) {
	return nil, nil
}

// NoOpStorage is a storage that holds nothing, used when a level is disabled
type NoOpStorage struct{}

// NewNoOpStorage creates a new no-operation storage instance
func NewNoOpStorage() interfaces.CacheStorage {
	return &NoOpStorage{}
}

// Open returns a no-operation cache
func (n *NoOpStorage) Open(name string) (interfaces.Cache, error) {
	return &NoOpCache{}, nil
}

// Names always returns no names
func (n *NoOpStorage) Names() ([]string, error) {
	return nil, nil
}

// Delete reports that nothing existed
func (n *NoOpStorage) Delete(name string) (bool, error) {
	return false, nil
}
