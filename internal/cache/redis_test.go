package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Plan  string `json:"plan"`
	Count int    `json:"count"`
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewCache(client, "petdesk:")
}

func TestCache_SetGet(t *testing.T) {
	mr, c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "settings:1", entry{Plan: "hotel", Count: 3}, time.Minute))
	assert.True(t, mr.Exists("petdesk:settings:1"))

	var got entry
	require.NoError(t, c.Get(ctx, "settings:1", &got))
	assert.Equal(t, entry{Plan: "hotel", Count: 3}, got)
}

func TestCache_Miss(t *testing.T) {
	_, c := setupCache(t)

	var got entry
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_DeleteAndTTL(t *testing.T) {
	mr, c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", entry{Plan: "basic"}, time.Minute))
	require.NoError(t, c.Set(ctx, "b", entry{Plan: "premium"}, time.Second))

	mr.FastForward(2 * time.Second)
	var got entry
	assert.ErrorIs(t, c.Get(ctx, "b", &got), ErrMiss)

	require.NoError(t, c.Delete(ctx, "a"))
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrMiss)
}
