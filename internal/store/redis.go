package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV is the Redis-backed remote tier.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKV creates a Redis client from redisURL. A non-empty token
// overrides any password in the URL. The connection is not probed.
// Socket deadlines follow the caller's context, so a stalled server is
// bounded by the context deadline rather than the client's ReadTimeout.
func NewRedisKV(redisURL, token string, ttl time.Duration) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if token != "" {
		opts.Password = token
	}
	opts.ContextTimeoutEnabled = true

	return &RedisKV{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Client exposes the underlying client for the rate limiter.
func (s *RedisKV) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisKV) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisKV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns the raw value at key.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set overwrites the value at key, refreshing the TTL when one is set.
func (s *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, s.ttl).Err()
}
