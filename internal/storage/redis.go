package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// DefaultTTL is how long a game survives in Redis without being saved again.
const DefaultTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for gamestate
// and filesystem for static resources (scene templates, player sheets)
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
	ttl     time.Duration

	maxRetries int
	retryDelay time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return NewRedisStorageWithClient(rdb, dataDir, ttl, logger)
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, dataDir string, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	if dataDir == "" {
		dataDir = "./data"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{
		client:     client,
		logger:     logger,
		dataDir:    dataDir,
		ttl:        ttl,
		maxRetries: 30,
		retryDelay: 2 * time.Second,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	for i := 0; i < r.maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(r.retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", r.maxRetries)
}
