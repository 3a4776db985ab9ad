package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStream carries one entry per snapshot the API starts serving
const SnapshotStream = "playtypes.snapshots"

// Publisher announces snapshot changes to other consumers
type Publisher interface {
	PublishSnapshotReloaded(ctx context.Context, status interface{}) error
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: SnapshotStream,
		maxLen: 1000,
	}
}

// WithStream publishes to a different stream key
func (rsp *RedisStreamPublisher) WithStream(stream string) *RedisStreamPublisher {
	rsp.stream = stream
	return rsp
}

// PublishSnapshotReloaded appends the new cache status to the snapshot stream
func (rsp *RedisStreamPublisher) PublishSnapshotReloaded(ctx context.Context, status interface{}) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rsp.stream,
		MaxLen: rsp.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":      "snapshot_reloaded",
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}

// NopPublisher drops events, used when Redis is not configured
type NopPublisher struct{}

// PublishSnapshotReloaded does nothing
func (NopPublisher) PublishSnapshotReloaded(context.Context, interface{}) error { return nil }
