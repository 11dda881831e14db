package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter. Each key holds up to Limit tokens
// refilled continuously at Limit per Window; a request spends one token.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity float64
	window   time.Duration
	now      func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a TokenBucket and starts a janitor that drops
// buckets idle for longer than two windows.
func NewTokenBucket(config Config) (*TokenBucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: float64(config.Limit),
		window:   config.Window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go tb.janitor(2 * config.Window)
	return tb, nil
}

// Allow spends a token for key if one is available
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	} else if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens = min(tb.capacity, b.tokens+tb.capacity*elapsed.Seconds()/tb.window.Seconds())
		b.lastRefill = now
	}

	info := &Info{Limit: int(tb.capacity)}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	} else {
		info.RetryAfter = tb.refillTime(1 - b.tokens)
	}
	info.Remaining = int(b.tokens)
	info.ResetAt = now.Add(tb.refillTime(tb.capacity - b.tokens))
	return info, nil
}

// refillTime is the time needed to accumulate tokens
func (tb *TokenBucket) refillTime(tokens float64) time.Duration {
	return time.Duration(tokens / tb.capacity * float64(tb.window))
}

func (tb *TokenBucket) janitor(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tb.sweep(tb.now(), idle)
		case <-tb.done:
			return
		}
	}
}

func (tb *TokenBucket) sweep(now time.Time, idle time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for key, b := range tb.buckets {
		if now.Sub(b.lastRefill) > idle {
			delete(tb.buckets, key)
		}
	}
}

// Len returns the number of tracked keys
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Close stops the janitor
func (tb *TokenBucket) Close() error {
	tb.closeOnce.Do(func() { close(tb.done) })
	return nil
}
