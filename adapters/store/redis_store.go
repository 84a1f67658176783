package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/dicer/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultRevocationPrefix namespaces revoked refresh token ids
const DefaultRevocationPrefix = "dicer:revoked:"

// RedisStore keeps revoked refresh token ids as expiring Redis keys, so
// revocations are shared by every dev API instance on the same Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis revocation store using DefaultRevocationPrefix
func NewRedisStore(client *redis.Client) ports.Store {
	return NewRedisStoreWithPrefix(client, DefaultRevocationPrefix)
}

// NewRedisStoreWithPrefix creates a Redis revocation store under prefix
func NewRedisStoreWithPrefix(client *redis.Client, prefix string) ports.Store {
	if prefix == "" {
		prefix = DefaultRevocationPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// InvalidateToken revokes tokenID. An existing revocation keeps the longer TTL.
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	// GT only ever extends the expiry of a key that already exists.
	pipe := s.client.TxPipeline()
	pipe.SetNX(ctx, s.prefix+tokenID, time.Now().UTC().Format(time.RFC3339), ttl)
	pipe.ExpireGT(ctx, s.prefix+tokenID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis revocations: invalidate %s: %w", tokenID, err)
	}
	return nil
}

// ConsumeToken revokes tokenID with SET NX, so exactly one caller wins a rotation
func (s *RedisStore) ConsumeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	won, err := s.client.SetNX(ctx, s.prefix+tokenID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocations: consume %s: %w", tokenID, err)
	}
	return won, nil
}

// IsTokenInvalidated reports whether tokenID is revoked
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocations: check %s: %w", tokenID, err)
	}
	return n > 0, nil
}
