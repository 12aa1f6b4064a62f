package l1

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/scheduler"
)

// Ensure Storage implements interfaces.CacheStorage
var _ interfaces.CacheStorage = (*Storage)(nil)

// Storage keeps one BigCache per generation name in process memory
type Storage struct {
	mu               sync.RWMutex
	cfg              *config.BigCacheConfig
	caches           map[string]*BigCache
	logger           *zap.Logger
	metricsScheduler *scheduler.Scheduler
}

// NewStorage creates an empty L1 storage and starts periodic metrics collection
func NewStorage(cfg *config.BigCacheConfig, logger *zap.Logger) *Storage {
	s := &Storage{
		cfg:    cfg,
		caches: make(map[string]*BigCache),
		logger: logger,
	}

	s.startMetricsCollection()

	return s
}

// Open returns the named store, creating it when missing
func (s *Storage) Open(name string) (interfaces.Cache, error) {
	s.mu.RLock()
	cache, ok := s.caches[name]
	s.mu.RUnlock()
	if ok {
		return cache, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cache, ok := s.caches[name]; ok {
		return cache, nil
	}

	cache, err := NewBigCache(name, s.cfg, s.logger)
	if err != nil {
		metrics.RecordCacheError("l1", "open")
		return nil, err
	}
	s.caches[name] = cache

	s.logger.Debug("Opened L1 cache", zap.String("cache", name))
	return cache, nil
}

// Names lists every store name in sorted order
func (s *Storage) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Delete drops the named store with all of its entries
func (s *Storage) Delete(name string) (bool, error) {
	s.mu.Lock()
	cache, ok := s.caches[name]
	delete(s.caches, name)
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	if err := cache.cache.Reset(); err != nil {
		s.logger.Warn("Failed to reset L1 cache", zap.String("cache", name), zap.Error(err))
	}
	if err := cache.Close(); err != nil {
		return true, err
	}

	s.logger.Debug("Deleted L1 cache", zap.String("cache", name))
	return true, nil
}

// Close stops metrics collection and closes every store
func (s *Storage) Close() error {
	s.stopMetricsCollection()

	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, cache := range s.caches {
		if err := cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.caches, name)
	}

	return firstErr
}

// startMetricsCollection starts periodic metrics collection
func (s *Storage) startMetricsCollection() {
	s.metricsScheduler = scheduler.New(s.cfg.StatsInterval, s.updateMetrics)
	s.metricsScheduler.Start()

	s.logger.Debug("Started L1 cache metrics collection")
}

// stopMetricsCollection stops periodic metrics collection
func (s *Storage) stopMetricsCollection() {
	if s.metricsScheduler != nil {
		s.metricsScheduler.Stop()
		s.logger.Debug("Stopped L1 cache metrics collection")
	}
}

// updateMetrics updates per-generation entry counts
func (s *Storage) updateMetrics() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, cache := range s.caches {
		metrics.UpdateL1Stats(name, int64(cache.Len()), int64(cache.Capacity()))
	}
}
