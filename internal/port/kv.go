package port

import (
	"context"
	"time"
)

// KVStore is the coordination-store capability surface shared by the lock
// manager and the fraud counters. Any backend offering these atomic
// primitives can stand in; loss of its data degrades coordination or fraud
// sensitivity but never financial correctness.
type KVStore interface {
	// SetNX stores value under key with a ttl only if key is absent.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only if its current value equals value,
	// as one indivisible operation.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}
