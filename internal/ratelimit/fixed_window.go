package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/proxylogs/proxylogs/internal/storage"
)

// FixedWindow counts requests per key inside fixed time windows.
type FixedWindow struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
}

func NewFixedWindow(redis *storage.RedisClient, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		redis:  redis,
		limit:  limit,
		window: window,
	}
}

func (f *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := time.Now().Truncate(f.window).Unix()
	redisKey := fmt.Sprintf("ratelimit:window:%s:%d", key, windowStart)

	count, err := f.redis.Incr(ctx, redisKey)
	if err != nil {
		return false, err
	}

	if count == 1 {
		// First hit in this window sets the expiry.
		if err := f.redis.Expire(ctx, redisKey, f.window); err != nil {
			return false, err
		}
	}

	return count <= int64(f.limit), nil
}

func (f *FixedWindow) Name() string {
	return "fixed_window"
}
