package l1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Entries live until their generation is deleted
const lifeWindow = 100 * 365 * 24 * time.Hour

// Upper bound of the per-entry hint used to size new shards. Unbounded shards
// are preallocated from the hint, so a large hint would reserve the whole
// quota up front for every generation.
const maxEntrySizeHint = 4 * 1024

// ErrQuotaExceeded is returned when a write would take a store past its size limit
var ErrQuotaExceeded = errors.New("L1 cache quota exceeded")

// Ensure BigCache implements interfaces.Cache
var _ interfaces.Cache = (*BigCache)(nil)

// BigCache implements one named L1 store using BigCache.
// The store never evicts on its own: writes past the size limit are rejected
// so entries only disappear when their generation is deleted.
type BigCache struct {
	name   string
	cache  *bigcache.BigCache
	logger *zap.Logger

	// limit in bytes, zero means unlimited
	limit int64

	mu    sync.Mutex
	sizes map[string]int
	used  int64
}

// NewBigCache creates a new BigCache instance for the named store
func NewBigCache(name string, bigcacheCfg *config.BigCacheConfig, logger *zap.Logger) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Shards = bigcacheCfg.Shards
	cfg.HardMaxCacheSize = 0 // a bounded bigcache drops its oldest entries when a shard fills
	cfg.MaxEntrySize = min(bigcacheCfg.MaxEntrySize, maxEntrySizeHint)
	cfg.MaxEntriesInWindow = 1000
	cfg.CleanWindow = 0 // never expire, generations are evicted wholesale
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return &BigCache{
		name:   name,
		cache:  cache,
		logger: logger,
		limit:  int64(bigcacheCfg.Size) * 1024 * 1024,
		sizes:  make(map[string]int),
	}, nil
}

// Get retrieves the entry stored under key
func (bc *BigCache) Get(key string) (*models.CacheEntry, bool) {
	data, err := bc.cache.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			bc.logger.Warn("L1 cache get error", zap.String("cache", bc.name), zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError("l1", "get")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal L1 cache entry", zap.String("cache", bc.name), zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "decode")
		bc.Delete(key) // Remove corrupted entry
		return nil, false
	}

	return &entry, true
}

// Put stores entry under key, replacing any previous entry
func (bc *BigCache) Put(key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.RecordCacheError("l1", "encode")
		return fmt.Errorf("failed to marshal L1 cache entry: %w", err)
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	used := bc.used - int64(bc.sizes[key]) + int64(len(data))
	if bc.limit > 0 && used > bc.limit {
		metrics.RecordCacheError("l1", "quota")
		return fmt.Errorf("%w: %s: entry of %d bytes with %d of %d bytes in use", ErrQuotaExceeded, bc.name, len(data), bc.used, bc.limit)
	}

	if err := bc.cache.Set(key, data); err != nil {
		metrics.RecordCacheError("l1", "store")
		return fmt.Errorf("failed to set L1 cache entry: %w", err)
	}
	bc.sizes[key] = len(data)
	bc.used = used

	return nil
}

// Delete removes entry from cache
func (bc *BigCache) Delete(key string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if err := bc.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		bc.logger.Warn("L1 cache delete error", zap.String("cache", bc.name), zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "delete")
		return
	}
	bc.used -= int64(bc.sizes[key])
	delete(bc.sizes, key)
}

// Keys lists every key held by the store
func (bc *BigCache) Keys() ([]string, error) {
	keys := make([]string, 0, bc.cache.Len())

	it := bc.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			// entry removed while iterating
			continue
		}
		keys = append(keys, info.Key())
	}

	return keys, nil
}

// Used returns the bytes held by live entries
func (bc *BigCache) Used() int64 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.used
}

// Len returns the number of stored entries
func (bc *BigCache) Len() int {
	return bc.cache.Len()
}

// Capacity returns the number of bytes allocated by the store
func (bc *BigCache) Capacity() int {
	return bc.cache.Capacity()
}

// Close closes the cache
func (bc *BigCache) Close() error {
	return bc.cache.Close()
}
