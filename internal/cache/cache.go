// Package cache stores validation reports keyed by the content they were computed from.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend
	Close() error
}

// Config holds common configuration for cache backends
type Config struct {
	// Backend is "memory" or "redis"
	Backend string
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
	// Redis holds the connection settings of the redis backend
	Redis RedisConfig
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		Backend:    "memory",
		DefaultTTL: 10 * time.Minute,
		Prefix:     "metaschema:",
		Redis:      DefaultRedisConfig(),
	}
}

// ErrUnknownBackend is returned by New for unsupported backends
var ErrUnknownBackend = errors.New("unknown cache backend")

// New creates the backend named by cfg.Backend
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg), nil
	case "redis":
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}
