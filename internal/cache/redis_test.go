package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// needs a live server, e.g. REDIS_TEST_URL=redis://localhost:6379/15
func testCache(t *testing.T) *RedisCache {
	t.Helper()

	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	rc, err := NewRedisCache(url)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	return rc.WithPrefix("test:" + uuid.NewString() + ":")
}

type cachedValue struct {
	Player string  `json:"player"`
	Total  float64 `json:"total"`
}

func TestRedisCache_JSONRoundTrip(t *testing.T) {
	rc := testCache(t)
	ctx := context.Background()
	require.NoError(t, rc.HealthCheck(ctx))

	var got cachedValue
	hit, err := rc.GetJSON(ctx, "matchup", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := cachedValue{Player: "Luka Dončić", Total: 23.7}
	require.NoError(t, rc.SetJSON(ctx, "matchup", want, time.Minute))

	hit, err = rc.GetJSON(ctx, "matchup", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	require.NoError(t, rc.Delete(ctx, "matchup"))
	hit, err = rc.GetJSON(ctx, "matchup", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_Expiry(t *testing.T) {
	rc := testCache(t)
	ctx := context.Background()

	require.NoError(t, rc.SetJSON(ctx, "short", cachedValue{Player: "x"}, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	var got cachedValue
	hit, err := rc.GetJSON(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache("not-a-redis-url")
	assert.Error(t, err)
}
