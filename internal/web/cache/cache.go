// Package cache stores rendered AJAX responses so repeated requests skip
// both the action and the conversion chain.
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

	// Clear removes all values under the cache prefix
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend
	Close() error
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL applies when Set is called with a zero TTL
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "dispatch:",
	}
}

// Backend names accepted by Open
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrMiss matches every cache miss
var ErrMiss = errors.New("cache miss")

// MissError is returned when a key is not found in the cache
type MissError struct {
	Key string
}

func (e *MissError) Error() string {
	return "cache miss: " + e.Key
}

// Is reports whether target matches this error type.
func (e *MissError) Is(target error) bool {
	return target == ErrMiss
}

// IsMiss checks if an error is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Open builds the backend named by backend. BackendNone and "" return a
// nil Cache and no error; callers treat that as caching disabled.
func Open(ctx context.Context, backend string, config Config, redisConfig RedisConfig) (Cache, error) {
	switch backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(config), nil
	case BackendRedis:
		redisConfig.Config = config
		rc, err := NewRedisCache(ctx, redisConfig)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
