package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/platform/cache"
	_ "github.com/fabricflow/fabricflow/testing"
)

type payload struct {
	Count int `json:"count"`
}

func TestJSONCacheReadsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewJSONCache(client, "reports", time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Count: calls}, nil
	}

	var got payload
	require.NoError(t, c.Fetch(ctx, &got, loader, "summary"))
	require.Equal(t, 1, got.Count)

	require.NoError(t, c.Fetch(ctx, &got, loader, "summary"))
	require.Equal(t, 1, got.Count)
	require.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	require.NoError(t, c.Fetch(ctx, &got, loader, "summary"))
	require.Equal(t, 2, got.Count)

	mr.FastForward(2 * time.Minute)
	require.NoError(t, c.Fetch(ctx, &got, loader, "summary"))
	require.Equal(t, 3, got.Count)
}

func TestJSONCacheFallsBackWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewJSONCache(client, "reports", time.Minute)
	mr.Close()

	var got payload
	err := c.Fetch(context.Background(), &got, func(context.Context) (any, error) { return payload{Count: 7}, nil }, "summary")
	require.NoError(t, err)
	require.Equal(t, 7, got.Count)

	var nilCache *cache.JSONCache
	require.NoError(t, nilCache.Fetch(context.Background(), &got, func(context.Context) (any, error) { return payload{Count: 9}, nil }))
	require.Equal(t, 9, got.Count)
}
