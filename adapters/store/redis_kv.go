package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/dicer/core"
	"github.com/redis/go-redis/v9"
)

// RedisKV is a KVStore kept in Redis so a session survives process restarts
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV creates a RedisKV. Keys are namespaced with prefix, "dicer:kv:" when empty.
func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	if prefix == "" {
		prefix = "dicer:kv:"
	}
	return &RedisKV{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a value by key
func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis kv: get %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value without expiration
func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis kv: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key
func (s *RedisKV) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis kv: remove %s: %w", key, err)
	}
	return nil
}
