package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the session between machines through Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store namespaced by profile
func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{
		client: client,
		prefix: "stockdash:" + profile + ":",
	}
}

// DialRedis connects and pings
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

// Get returns the value for key
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Apply writes the batch inside MULTI/EXEC
func (r *RedisStore) Apply(ctx context.Context, b Batch) error {
	if b.Empty() {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range b.Unset {
			pipe.Del(ctx, r.key(k))
		}
		for _, k := range b.keys() {
			pipe.Set(ctx, r.key(k), b.Set[k], 0)
		}
		return nil
	})
	return err
}

// Close closes the client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
