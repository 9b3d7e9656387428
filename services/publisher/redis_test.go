package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher, err := NewRedisPublisher(ctx, RedisOptions{
		Addr:            "localhost:6379",
		StreamPrefix:    "test_euromillions",
		StreamCount:     1,
		StreamMaxLength: 10,
	})
	if err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	defer publisher.Close()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	client.Del(ctx, "test_euromillions:0")

	err = publisher.Publish(KeyDraw, []byte("test_message"))
	require.NoError(t, err)

	messages, err := client.XRange(ctx, "test_euromillions:0", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	// The message should be base64 encoded
	assert.Equal(t, "dGVzdF9tZXNzYWdl", messages[0].Values[KeyDraw])

	for range 15 {
		require.NoError(t, publisher.Publish(KeyGrid, []byte("grid")))
	}
	require.NoError(t, publisher.TrimStreams())

	length, err := client.XLen(ctx, "test_euromillions:0").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(10), length)
}

func TestNewRedisPublisherUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := NewRedisPublisher(ctx, RedisOptions{Addr: "127.0.0.1:1", StreamPrefix: "x"})
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(KeyDraw, []byte("{}")))
	assert.NoError(t, p.TrimStreams())
	assert.NoError(t, p.Close())
}
