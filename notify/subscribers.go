package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultChannel = "sumit:notifications"

// LogHandler writes messages to logger. Exhaustion and call failures log at error level.
func LogHandler(logger zerolog.Logger) Handler {
	return func(_ context.Context, msg Message) error {
		e := logger.Info()
		if msg.Topic != TopicEventSent {
			e = logger.Error()
		}
		e.Str("topic", msg.Topic.String()).
			Str("event_id", msg.EventID).
			Str("event_type", msg.EventType).
			Int("retry_count", msg.RetryCount).
			Str("url", msg.URL).
			Int("attempts", msg.Attempts).
			Str("last_error", msg.LastError).
			Msg("notification")
		return nil
	}
}

// RedisPublisher publishes messages as JSON on a Redis pub/sub channel
func RedisPublisher(client *redis.Client, channel string) Handler {
	if channel == "" {
		channel = DefaultChannel
	}
	return func(ctx context.Context, msg Message) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshaling notification: %w", err)
		}
		if err := client.Publish(ctx, channel, data).Err(); err != nil {
			return fmt.Errorf("publishing notification: %w", err)
		}
		return nil
	}
}
