package ratelimit

import "context"

// Strategy decides whether a request identified by key may proceed.
type Strategy interface {
	Allow(ctx context.Context, key string) (bool, error)
	Name() string
}
