package store

import (
	"context"
	"fmt"
	"time"

	"eventconnect-server/internal/client"
	"eventconnect-server/internal/util"

	"go.uber.org/zap"
)

// compareAndDeleteScript deletes the key only when its value is unchanged,
// closing the get-then-delete window under concurrent verification attempts.
const compareAndDeleteScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisKV is the production KV implementation backed by Redis; TTL
// enforcement is delegated entirely to the server.
type RedisKV struct {
	client *client.RedisClient
}

func NewRedisKV(client *client.RedisClient) *RedisKV {
	return &RedisKV{client: client}
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, found, err := s.client.GetBytes(ctx, key)
	if err != nil {
		util.Error("Failed to read key from Redis", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, found, nil
}

func (s *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl); err != nil {
		util.Error("Failed to write key to Redis", zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		util.Error("Failed to delete keys from Redis", zap.Int("count", len(keys)), zap.Error(err))
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisKV) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	res, err := s.client.Eval(ctx, compareAndDeleteScript, []string{key}, expected)
	if err != nil {
		util.Error("Compare-and-delete script failed", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("redis compare-and-delete: %w", err)
	}
	n, ok := res.(int64)
	return ok && n == 1, nil
}

func (s *RedisKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.client.Scan(ctx, prefix+"*", 1000)
	if err != nil {
		util.Error("Failed to scan keys in Redis", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
