// Package cache provides byte-oriented caches for registry metadata
// responses.
//
// Downloaded mod files are not stored here; they live in the download
// cache of package download. This package only holds the JSON bodies of
// metadata lookups so repeated commands do not spend the registry's rate
// limit budget.
//
// # Backends
//
//   - [FileCache]: one JSON envelope per key under a local directory (CLI default)
//   - [RedisCache]: shared cache for several machines
//   - [MongoCache]: shared cache backed by a TTL-indexed collection
//   - [NullCache]: caching disabled
//
// [Open] selects a backend from a [Config].
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores opaque byte values under string keys with an optional TTL.
// A TTL of 0 means the entry never expires. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value for key. A miss (absent or expired) is reported
	// as ok=false with a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key, replacing any existing entry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config selects and configures a cache backend.
type Config struct {
	Backend string // One of the Backend* constants; empty means file

	Dir string // FileCache directory

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the backend described by cfg.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileCache(cfg.Dir)
	case BackendRedis:
		return NewRedisCache(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case BackendMongo:
		return NewMongoCache(ctx, MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NullCache never stores anything. It backs --no-cache and the "none"
// backend.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
