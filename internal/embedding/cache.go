package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Cache is the subset of a key-value store the cached embedder needs.
// services.RedisService satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys []string) ([]string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

// CachedEmbedder stores vectors in a Cache keyed by backend name and text hash.
type CachedEmbedder struct {
	inner  Embedder
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(inner Embedder, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:" + c.inner.Name() + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) []float32 {
	raw, err := c.cache.Get(ctx, c.key(text))
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
		return nil
	}
	return c.decode(raw)
}

// lookupMany returns one vector per text, nil for misses. A failed read
// counts as all misses.
func (c *CachedEmbedder) lookupMany(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}
	raws, err := c.cache.GetMany(ctx, keys)
	if err != nil || len(raws) != len(texts) {
		c.logger.Warn("embedding cache batch read failed", "error", err)
		return out
	}
	for i, raw := range raws {
		out[i] = c.decode(raw)
	}
	return out
}

func (c *CachedEmbedder) decode(raw string) []float32 {
	if raw == "" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		c.logger.Warn("embedding cache entry unreadable", "error", err)
		return nil
	}
	return vec
}

func (c *CachedEmbedder) store(ctx context.Context, text string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.key(text), string(data), c.ttl); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec := c.lookup(ctx, text); vec != nil {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, text, vec)
	return vec, nil
}

// EmbedBatch only sends cache misses to the backend.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := c.lookupMany(ctx, texts)
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if out[i] == nil {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		c.store(ctx, missing[j], vec)
	}
	return out, nil
}

func (c *CachedEmbedder) Name() string {
	return c.inner.Name()
}
