package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisService_SetGetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	svc := NewRedisServiceWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), discardLogger())
	defer svc.Close()
	ctx := context.Background()

	require.NoError(t, svc.Ping(ctx))

	v, err := svc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, svc.Set(ctx, "embed:k", "[1,2]", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("cache:embed:k"))

	v, err = svc.Get(ctx, "embed:k")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", v)

	vals, err := svc.GetMany(ctx, []string{"missing", "embed:k"})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "[1,2]"}, vals)

	require.NoError(t, svc.Del(ctx, "embed:k"))
	assert.False(t, mr.Exists("cache:embed:k"))
}

func TestMockCache(t *testing.T) {
	c := NewMockCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	require.NoError(t, c.Del(ctx, "a"))
	v, _ = c.Get(ctx, "a")
	assert.Equal(t, "", v)
	assert.Len(t, c.SetCalls, 1)
	assert.Len(t, c.GetCalls, 2)
}
