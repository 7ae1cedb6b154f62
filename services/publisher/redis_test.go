package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/logger"
)

func TestObservationEventJSON(t *testing.T) {
	prev := decimal.RequireFromString("1899.90")
	event := ObservationEvent{
		ID:            "obs-1",
		ProductID:     "p1",
		Store:         "KABUM",
		Price:         decimal.RequireFromString("1850.00"),
		Currency:      "BRL",
		CollectedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		PreviousPrice: &prev,
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "p1", decoded["productId"])
	assert.Equal(t, "1850", decoded["price"])
	assert.Equal(t, "1899.9", decoded["previousPrice"])
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["collectedAt"])

	event.PreviousPrice = nil
	raw, err = json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "previousPrice")
}

// This test requires a running redis instance
func TestRedisPublisher(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	var logs bytes.Buffer
	logger.InitWithWriter(&logs)

	ctx := context.Background()
	stream := "test_price_observations"
	publisher := NewRedisPublisher("localhost:6379", 0, stream, 2)
	defer publisher.Close()

	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 0})
	defer client.Close()
	client.Del(ctx, stream)
	defer client.Del(ctx, stream)

	for _, v := range []string{"100", "200", "300"} {
		err := publisher.Publish(ctx, ObservationEvent{
			ProductID:   "p1",
			Price:       decimal.RequireFromString(v),
			Currency:    "BRL",
			CollectedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	messages, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "p1", messages[0].Values["productId"])

	var first ObservationEvent
	require.NoError(t, json.Unmarshal([]byte(messages[0].Values["observation"].(string)), &first))
	assert.True(t, decimal.NewFromInt(100).Equal(first.Price))

	require.NoError(t, publisher.TrimStreams(ctx))
	length, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	out := logs.String()
	assert.Contains(t, out, `"component":"publisher"`)
	assert.Contains(t, out, "Observation published")
	assert.Contains(t, out, "Stream trimmed")
}
