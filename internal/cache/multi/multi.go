package multi

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Ensure MultiStorage implements interfaces.CacheStorage
var _ interfaces.CacheStorage = (*MultiStorage)(nil)

// Ensure MultiCache implements interfaces.LevelAwareCache
var _ interfaces.LevelAwareCache = (*MultiCache)(nil)

// Level pairs a storage with the level name reported for its hits
type Level struct {
	Name    models.CacheLevel
	Storage interfaces.CacheStorage
}

// MultiStorage layers several storages, fastest first
type MultiStorage struct {
	levels            []Level
	enablePropagation bool
	logger            *zap.Logger
}

// NewMultiStorage creates a layered storage over the provided levels
func NewMultiStorage(levels []Level, enablePropagation bool, logger *zap.Logger) *MultiStorage {
	return &MultiStorage{
		levels:            levels,
		enablePropagation: enablePropagation,
		logger:            logger,
	}
}

// Open opens the named store in every level
func (ms *MultiStorage) Open(name string) (interfaces.Cache, error) {
	caches := make([]interfaces.Cache, 0, len(ms.levels))
	names := make([]models.CacheLevel, 0, len(ms.levels))

	for _, level := range ms.levels {
		cache, err := level.Storage.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open %s cache %q: %w", level.Name, name, err)
		}
		caches = append(caches, cache)
		names = append(names, level.Name)
	}

	return NewMultiCache(caches, names, ms.enablePropagation, ms.logger), nil
}

// Names returns the union of store names across levels
func (ms *MultiStorage) Names() ([]string, error) {
	seen := make(map[string]struct{})
	var errs []error

	for _, level := range ms.levels {
		names, err := level.Storage.Names()
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s caches: %w", level.Name, err))
			continue
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)

	return result, errors.Join(errs...)
}

// Delete removes the named store from every level
func (ms *MultiStorage) Delete(name string) (bool, error) {
	existed := false
	var errs []error

	for _, level := range ms.levels {
		ok, err := level.Storage.Delete(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s cache %q: %w", level.Name, name, err))
			continue
		}
		existed = existed || ok
	}

	return existed, errors.Join(errs...)
}

// GetLevelCount returns the number of levels in the storage
func (ms *MultiStorage) GetLevelCount() int {
	return len(ms.levels)
}

// MultiCache implements a composite cache that tries multiple cache implementations
// It attempts to get values through an array of caches in order and writes to all of them
type MultiCache struct {
	caches            []interfaces.Cache
	levels            []models.CacheLevel
	enablePropagation bool
	logger            *zap.Logger
}

// NewMultiCache creates a new MultiCache instance with provided cache implementations
func NewMultiCache(caches []interfaces.Cache, levels []models.CacheLevel, enablePropagation bool, logger *zap.Logger) *MultiCache {
	return &MultiCache{
		caches:            caches,
		levels:            levels,
		enablePropagation: enablePropagation,
		logger:            logger,
	}
}

// Get retrieves the entry from the first cache that has the key
func (mc *MultiCache) Get(key string) (*models.CacheEntry, bool) {
	result := mc.GetWithLevel(key)
	return result.Entry, result.Found
}

// GetWithLevel retrieves the entry and reports which level answered
// With propagation enabled a hit is copied into every faster level
func (mc *MultiCache) GetWithLevel(key string) models.LookupResult {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for get operation", zap.String("key", key))
		return models.LookupResult{Level: models.CacheLevelMiss}
	}

	for i, cache := range mc.caches {
		entry, found := cache.Get(key)
		if !found {
			continue
		}

		level := mc.levelName(i)
		metrics.RecordCacheHit(string(level))

		if mc.enablePropagation {
			mc.propagate(key, entry, i)
		}

		return models.LookupResult{Entry: entry, Found: true, Level: level}
	}

	return models.LookupResult{Level: models.CacheLevelMiss}
}

func (mc *MultiCache) propagate(key string, entry *models.CacheEntry, hitIndex int) {
	for i := 0; i < hitIndex; i++ {
		if err := mc.caches[i].Put(key, entry); err != nil {
			mc.logger.Warn("Failed to propagate cache entry",
				zap.String("key", key),
				zap.String("level", string(mc.levelName(i))),
				zap.Error(err))
		}
	}
}

// Put stores the entry in all available caches
func (mc *MultiCache) Put(key string, entry *models.CacheEntry) error {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for put operation", zap.String("key", key))
		return nil
	}

	var errs []error
	for i, cache := range mc.caches {
		if err := cache.Put(key, entry); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mc.levelName(i), err))
		}
	}
	return errors.Join(errs...)
}

// Delete removes entry from all available caches
func (mc *MultiCache) Delete(key string) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for delete operation", zap.String("key", key))
		return
	}

	for _, cache := range mc.caches {
		cache.Delete(key)
	}
}

// Keys returns the union of keys across caches
func (mc *MultiCache) Keys() ([]string, error) {
	seen := make(map[string]struct{})
	var errs []error

	for i, cache := range mc.caches {
		keys, err := cache.Keys()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mc.levelName(i), err))
			continue
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for key := range seen {
		result = append(result, key)
	}
	sort.Strings(result)

	return result, errors.Join(errs...)
}

// GetCacheCount returns the number of caches in the multi-cache
func (mc *MultiCache) GetCacheCount() int {
	return len(mc.caches)
}

func (mc *MultiCache) levelName(i int) models.CacheLevel {
	if i < len(mc.levels) {
		return mc.levels[i]
	}
	return models.CacheLevel(fmt.Sprintf("level%d", i))
}
