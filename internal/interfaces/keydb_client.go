package interfaces

import (
	"context"

	"github.com/go-redis/redis/v8"
)

//go:generate mockgen -source=keydb_client.go -destination=mock/keydb_client.go -package=mock

// KeyDbClient defines the interface for KeyDB/Redis client operations
type KeyDbClient interface {
	// HGet retrieves a hash field
	HGet(ctx context.Context, key, field string) *redis.StringCmd

	// HSet stores hash fields
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd

	// HDel deletes hash fields
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd

	// HKeys lists hash fields
	HKeys(ctx context.Context, key string) *redis.StringSliceCmd

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) *redis.IntCmd

	// SAdd adds set members
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd

	// SRem removes set members
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd

	// SMembers lists set members
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd

	// Ping tests connectivity
	Ping(ctx context.Context) *redis.StatusCmd

	// Close closes the client connection
	Close() error
}
