package ratelimit

import (
	"time"

	"github.com/proxylogs/proxylogs/internal/storage"
)

// NewStrategy builds a limiter for the named algorithm. Unknown names fall
// back to the fixed window.
func NewStrategy(redis *storage.RedisClient, algorithm string, limit int, window time.Duration) Strategy {
	switch algorithm {
	case "token_bucket":
		return NewTokenBucket(redis, limit, window)
	default:
		return NewFixedWindow(redis, limit, window)
	}
}
