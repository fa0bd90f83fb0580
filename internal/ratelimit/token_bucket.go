package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/proxylogs/proxylogs/internal/storage"
	"github.com/redis/go-redis/v9"
)

// TokenBucket refills capacity tokens evenly over the window and spends
// one per request.
type TokenBucket struct {
	redis    *storage.RedisClient
	capacity int
	window   time.Duration
}

type bucketState struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

func NewTokenBucket(redis *storage.RedisClient, capacity int, window time.Duration) *TokenBucket {
	return &TokenBucket{
		redis:    redis,
		capacity: capacity,
		window:   window,
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:bucket:%s", key)

	state := bucketState{
		Tokens:     float64(t.capacity),
		LastRefill: time.Now(),
	}

	data, err := t.redis.Get(ctx, redisKey)
	if err != nil && err != redis.Nil {
		return false, err
	}
	if err == nil {
		if jsonErr := json.Unmarshal([]byte(data), &state); jsonErr != nil {
			// Corrupt state; fall back to a full bucket.
			state = bucketState{Tokens: float64(t.capacity), LastRefill: time.Now()}
		}
	}

	nowTime := time.Now()
	refillPerSecond := float64(t.capacity) / t.window.Seconds()
	refilled := nowTime.Sub(state.LastRefill).Seconds() * refillPerSecond
	state.Tokens = math.Min(state.Tokens+refilled, float64(t.capacity))
	state.LastRefill = nowTime

	allowed := state.Tokens >= 1
	if allowed {
		state.Tokens--
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return false, err
	}
	if err := t.redis.Set(ctx, redisKey, encoded, time.Hour); err != nil {
		return false, err
	}

	return allowed, nil
}

func (t *TokenBucket) Name() string {
	return "token_bucket"
}
