package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

// newLiveRedisQueue skips the test when Redis is not reachable
func newLiveRedisQueue(t *testing.T, cfg RedisConfig) *RedisQueue {
	t.Helper()

	cfg.URL = getRedisURL()
	q, err := newRedisQueue(cfg)
	if err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestRedisQueue_StreamName(t *testing.T) {
	q := newRedisQueueWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), RedisConfig{})
	defer func() { _ = q.Close() }()

	assert.Equal(t, "forecasting:forecasting.rows", q.streamName("forecasting.rows"))

	custom := newRedisQueueWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), RedisConfig{Stream: "fc"})
	defer func() { _ = custom.Close() }()
	assert.Equal(t, "fc:completed", custom.streamName("completed"))
}

func TestRedisQueue_AddArgs(t *testing.T) {
	q := newRedisQueueWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), RedisConfig{MaxLen: 1000})
	defer func() { _ = q.Close() }()

	args := q.addArgs("rows", []byte("x"))
	assert.Equal(t, "forecasting:rows", args.Stream)
	assert.Equal(t, "*", args.ID)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := newRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisQueue_Publish(t *testing.T) {
	q := newLiveRedisQueue(t, RedisConfig{Stream: "test-forecasting"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := q.streamName("completed")
	q.client.Del(ctx, stream)
	defer q.client.Del(context.Background(), stream)

	require.NoError(t, q.Publish(ctx, "completed", []byte("summary")))

	msgs, err := q.client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "summary", msgs[0].Values["data"])
}

func TestRedisQueue_PublishBatch(t *testing.T) {
	q := newLiveRedisQueue(t, RedisConfig{Stream: "test-forecasting"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := q.streamName("rows")
	q.client.Del(ctx, stream)
	defer q.client.Del(context.Background(), stream)

	n, err := q.PublishBatch(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = q.PublishBatch(ctx, []BatchMessage{
		{Subject: "rows", Data: []byte("1")},
		{Subject: "rows", Data: []byte("2")},
		{Subject: "rows", Data: []byte("3")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	length, err := q.client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}
