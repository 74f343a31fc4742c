package kv

import (
	"context"
	"time"

	"payout/internal/port"

	"github.com/redis/go-redis/v9"
)

// compareAndDeleteScript deletes the key only while it still holds the
// caller's value. Doing the check and the delete server-side closes the
// race against an expiry-then-reacquire between the two steps.
var compareAndDeleteScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) port.KVStore {
	return &redisStore{client: client}
}

func (s *redisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	res, err := compareAndDeleteScript.Run(ctx, s.client, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *redisStore) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	return s.client.IncrByFloat(ctx, key, delta).Result()
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.Expire(ctx, key, ttl).Result()
}

func (s *redisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
