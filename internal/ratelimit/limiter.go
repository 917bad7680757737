// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "rate:checkout:"

type Limiter struct {
	client *goredis.Client
	limit  int
	window time.Duration
}

// NewLimiter returns a limiter allowing limit hits per window. A nil client or
// a zero limit disables limiting.
func NewLimiter(client *goredis.Client, limit int, window time.Duration) *Limiter {
	if limit < 0 {
		limit = 0
	}
	return &Limiter{client: client, limit: limit, window: window}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.limit > 0 && l.window > 0
}

// Allow counts one hit against key. When the window is exhausted it returns
// allowed=false and the seconds until the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (int64, bool, error) {
	if !l.Enabled() {
		return 0, true, nil
	}
	if key == "" {
		return 0, false, fmt.Errorf("rate key is required")
	}

	count, ttl, err := l.incrementWindow(ctx, keyPrefix+key)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.limit) {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

func (l *Limiter) incrementWindow(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("increment rate key: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, 0, fmt.Errorf("set rate key ttl: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read rate key ttl: %w", err)
	}
	if ttl < 0 {
		// every counter must expire; restart the window of one that lost its TTL
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, 0, fmt.Errorf("repair rate key ttl: %w", err)
		}
		ttl = l.window
	}
	return count, ttl, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
