package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration test, requires a reachable redis at REDIS_URL
func TestRedisCache_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if testing.Short() || url == "" {
		t.Skip("Skipping integration test")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Set(ctx, "proctor-test:1", payload{Name: "a"}, time.Minute))
	require.NoError(t, c.Set(ctx, "proctor-test:2", payload{Name: "b"}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "proctor-test:1", &got))
	assert.Equal(t, "a", got.Name)

	require.NoError(t, c.DeletePattern(ctx, "proctor-test:*"))
	assert.True(t, IsCacheMiss(c.Get(ctx, "proctor-test:2", &got)))
}

func TestIsCacheMiss(t *testing.T) {
	assert.True(t, IsCacheMiss(ErrCacheMiss))
	assert.False(t, IsCacheMiss(io.EOF))
}
