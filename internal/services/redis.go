package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// cachePrefix namespaces cache keys away from stored games.
const cachePrefix = "cache:"

// RedisService is the Cache used for rule book embeddings.
type RedisService struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Cache = (*RedisService)(nil)

func NewRedisService(redisURL string, logger *slog.Logger) *RedisService {
	return NewRedisServiceWithClient(redis.NewClient(&redis.Options{Addr: redisURL}), logger)
}

func NewRedisServiceWithClient(client *redis.Client, logger *slog.Logger) *RedisService {
	return &RedisService{client: client, logger: logger}
}

func (r *RedisService) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisService) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if err := r.client.Set(ctx, cachePrefix+key, value, expiration).Err(); err != nil {
		r.logger.Error("Cache write failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, cachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Cache read failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

// GetMany reads keys with one MGET; missing keys come back as "".
func (r *RedisService) GetMany(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = cachePrefix + k
	}
	vals, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		r.logger.Error("Cache batch read failed", "keys", len(keys), "error", err)
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	out := make([]string, len(keys))
	hits := 0
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
			hits++
		}
	}
	r.logger.Debug("Cache batch read", "keys", len(keys), "hits", hits)
	return out, nil
}

func (r *RedisService) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = cachePrefix + k
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (r *RedisService) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	r.logger.Info("Cache connection closed")
	return nil
}
