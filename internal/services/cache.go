package services

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The embedding
// layer keeps rulebook vectors here so restarts skip re-embedding.
type Cache interface {
	// Ping tests the cache connection
	Ping(ctx context.Context) error

	// Set stores a key-value pair with optional expiration
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Get retrieves a value by key; a missing key yields "", nil
	Get(ctx context.Context, key string) (string, error)

	// GetMany retrieves several keys in order, "" for each missing one
	GetMany(ctx context.Context, keys []string) ([]string, error)

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Close closes the cache connection
	Close() error
}
