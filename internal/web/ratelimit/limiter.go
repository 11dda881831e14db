// Package ratelimit throttles AJAX calls per client, in memory or shared
// across instances through redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the next request for key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
	Close() error
}

// Info describes the limit state after a call to Allow
type Info struct {
	// Limit is the maximum number of requests allowed per window
	Limit int
	// Remaining is the number of requests left in the current window
	Remaining int
	// ResetAt is when a full window's worth of requests is available again
	ResetAt time.Time
	Allowed bool
	// RetryAfter is how long a rejected client should wait
	RetryAfter time.Duration
}

// Limiter backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the limit shared by every backend
type Config struct {
	// Limit requests are allowed per Window
	Limit  int
	Window time.Duration
	// Prefix namespaces redis keys
	Prefix string
}

// DefaultConfig allows 100 requests per minute
func DefaultConfig() Config {
	return Config{
		Limit:  100,
		Window: time.Minute,
		Prefix: "dispatch:ratelimit:",
	}
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return errors.New("limit must be greater than 0")
	}
	if c.Window <= 0 {
		return errors.New("window must be greater than 0")
	}
	return nil
}

// Open creates the limiter for backend. client is required for redis.
func Open(backend string, config Config, client *redis.Client) (Limiter, error) {
	switch backend {
	case BackendMemory:
		tb, err := NewTokenBucket(config)
		if err != nil {
			return nil, err
		}
		return tb, nil
	case BackendRedis:
		rl, err := NewRedisLimiter(client, config)
		if err != nil {
			return nil, err
		}
		return rl, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}
}
