package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the
// request if fewer than limit remain. Scores are unix milliseconds.
// Returns {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
local current = redis.call('ZCARD', key)
local allowed = 0
if current < limit then
	redis.call('ZADD', key, now, member)
	current = current + 1
	allowed = 1
end
redis.call('PEXPIRE', key, ttl)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldest_score = now
if #oldest == 2 then
	oldest_score = tonumber(oldest[2])
end
return {allowed, current, oldest_score}
`)

var seq atomic.Uint64

func nextSeq() uint64 {
	return seq.Add(1)
}

// RedisLimiter is a sliding-window limiter shared by every instance
// pointing at the same redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a RedisLimiter on client
func NewRedisLimiter(client *redis.Client, config Config) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &RedisLimiter{
		client: client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
		now:    time.Now,
	}, nil
}

// Allow records the request for key if the window has room
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := r.now()
	windowStart := now.Add(-r.window)
	// members must be unique even for requests in the same nanosecond
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(nextSeq(), 10)

	res, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		r.limit,
		r.window.Milliseconds(),
		member,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(res) != 3 {
		return nil, errors.New("unexpected redis script result")
	}

	allowed, ok1 := res[0].(int64)
	count, ok2 := res[1].(int64)
	oldest, ok3 := res[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.New("unexpected redis script result")
	}

	info := &Info{
		Limit:     r.limit,
		Remaining: max(r.limit-int(count), 0),
		ResetAt:   time.UnixMilli(oldest).Add(r.window),
		Allowed:   allowed == 1,
	}
	if !info.Allowed {
		info.RetryAfter = max(info.ResetAt.Sub(now), 0)
	}
	return info, nil
}

// Reset forgets every request recorded for key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the redis client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
