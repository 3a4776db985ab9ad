package publisher

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStreamPublisher_PublishSnapshotReloaded(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	stream := "test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, stream) })

	pub := NewRedisStreamPublisher(client).WithStream(stream)
	require.NoError(t, pub.PublishSnapshotReloaded(ctx, map[string]interface{}{"cached": true, "offensive_types": 10}))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "snapshot_reloaded", entries[0].Values["type"])

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &status))
	assert.Equal(t, true, status["cached"])
	assert.Equal(t, float64(10), status["offensive_types"])
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishSnapshotReloaded(context.Background(), nil))
}
