package l2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Ensure Storage implements interfaces.CacheStorage
var _ interfaces.CacheStorage = (*Storage)(nil)

// Ensure KeyDBCache implements interfaces.Cache
var _ interfaces.Cache = (*KeyDBCache)(nil)

// Storage keeps every generation as one KeyDB hash and tracks the names in a set
type Storage struct {
	client interfaces.KeyDbClient
	config *config.KeyDBConfig
	logger *zap.Logger
}

// NewStorage creates a new KeyDB backed storage with provided client
func NewStorage(cfg *config.KeyDBConfig, client interfaces.KeyDbClient, logger *zap.Logger) *Storage {
	return &Storage{
		client: client,
		config: cfg,
		logger: logger,
	}
}

func (s *Storage) registryKey() string {
	return s.config.KeyPrefix + ":caches"
}

func (s *Storage) hashKey(name string) string {
	return s.config.KeyPrefix + ":cache:" + name
}

// Open registers the named store and returns it
func (s *Storage) Open(name string) (interfaces.Cache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GetSendTimeout())
	defer cancel()

	if err := s.client.SAdd(ctx, s.registryKey(), name).Err(); err != nil {
		metrics.RecordCacheError("l2", "open")
		return nil, fmt.Errorf("failed to register L2 cache %q: %w", name, err)
	}

	return &KeyDBCache{
		client: s.client,
		name:   name,
		key:    s.hashKey(name),
		config: s.config,
		logger: s.logger,
	}, nil
}

// Names lists every registered store name in sorted order
func (s *Storage) Names() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GetReadTimeout())
	defer cancel()

	names, err := s.client.SMembers(ctx, s.registryKey()).Result()
	if err != nil {
		metrics.RecordCacheError("l2", "names")
		return nil, fmt.Errorf("failed to list L2 caches: %w", err)
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes the named hash and unregisters it
func (s *Storage) Delete(name string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GetSendTimeout())
	defer cancel()

	if err := s.client.Del(ctx, s.hashKey(name)).Err(); err != nil {
		metrics.RecordCacheError("l2", "delete")
		return false, fmt.Errorf("failed to delete L2 cache %q: %w", name, err)
	}

	removed, err := s.client.SRem(ctx, s.registryKey(), name).Result()
	if err != nil {
		metrics.RecordCacheError("l2", "delete")
		return false, fmt.Errorf("failed to unregister L2 cache %q: %w", name, err)
	}

	return removed > 0, nil
}

// Close closes the KeyDB connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// KeyDBCache implements one named L2 store as a KeyDB hash
type KeyDBCache struct {
	client interfaces.KeyDbClient
	name   string
	key    string
	config *config.KeyDBConfig
	logger *zap.Logger
}

// Get retrieves the entry stored under key
func (kc *KeyDBCache) Get(key string) (*models.CacheEntry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetReadTimeout())
	defer cancel()

	data, err := kc.client.HGet(ctx, kc.key, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			kc.logger.Error("L2 cache get error", zap.String("cache", kc.name), zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError("l2", "get")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		kc.logger.Error("Failed to unmarshal L2 cache entry", zap.String("cache", kc.name), zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "decode")
		kc.client.HDel(context.Background(), kc.key, key)
		return nil, false
	}

	return &entry, true
}

// Put stores entry under key, replacing any previous entry
func (kc *KeyDBCache) Put(key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.RecordCacheError("l2", "encode")
		return fmt.Errorf("failed to marshal L2 cache entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.HSet(ctx, kc.key, key, data).Err(); err != nil {
		metrics.RecordCacheError("l2", "store")
		return fmt.Errorf("failed to set L2 cache entry: %w", err)
	}

	return nil
}

// Delete removes entry from the store
func (kc *KeyDBCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	err := kc.client.HDel(ctx, kc.key, key).Err()
	if err != nil {
		kc.logger.Error("Failed to delete L2 cache entry", zap.String("cache", kc.name), zap.String("key", key), zap.Error(err))
		return
	}
}

// Keys lists every key held by the store
func (kc *KeyDBCache) Keys() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetReadTimeout())
	defer cancel()

	keys, err := kc.client.HKeys(ctx, kc.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list L2 cache keys: %w", err)
	}

	return keys, nil
}
