package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sjsage522/pricetracker/logger"
)

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int
	log             *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
		log:             logger.ForPublisher().WithField("stream", stream),
	}
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Stream returns the stream name events are appended to
func (p *RedisPublisher) Stream() string {
	return p.stream
}

// Publish appends the event as JSON under the "observation" field
func (p *RedisPublisher) Publish(ctx context.Context, event ObservationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode observation event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"productId":   event.ProductID,
			"observation": string(payload),
		},
	}).Result()
	if err != nil {
		return err
	}

	p.log.Debug().
		Str("product_id", event.ProductID).
		Str("entry_id", id).
		Msg("Observation published")
	return nil
}

// TrimStreams trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	removed, err := p.client.XTrimMaxLen(ctx, p.stream, int64(p.streamMaxLength)).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		p.log.Info().
			Int64("removed", removed).
			Int("max_length", p.streamMaxLength).
			Msg("Stream trimmed")
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
