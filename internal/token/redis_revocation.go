package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocations is the shared-store registry for deployments that
// outgrow a single process. Redis handles expiry itself, so there is no
// sweep to run.
type RedisRevocations struct {
	client *redis.Client
	prefix string
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{
		client: client,
		prefix: "revoked:",
	}
}

func (r *RedisRevocations) key(tokenID string) string {
	return r.prefix + tokenID
}

func (r *RedisRevocations) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(tokenID), "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
