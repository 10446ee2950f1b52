package sidechannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultDeadLetterKey = "sidechannel:deadletters"
	DefaultDeadLetterMax = 1000
)

// DeadLetter records one failed best-effort operation
type DeadLetter struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	Error     string          `json:"error"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	At        time.Time       `json:"at"`
}

// NewDeadLetter captures cause and a JSON copy of payload
func NewDeadLetter(id, operation string, payload any, cause error, at time.Time) (DeadLetter, error) {
	letter := DeadLetter{
		ID:        id,
		Operation: operation,
		Error:     cause.Error(),
		At:        at.UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return DeadLetter{}, fmt.Errorf("marshaling payload: %w", err)
		}
		letter.Payload = raw
	}
	return letter, nil
}

// Sink stores dead letters
type Sink interface {
	Put(ctx context.Context, letter DeadLetter) error
}

// LogSink writes dead letters to a zerolog logger
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Put(_ context.Context, letter DeadLetter) error {
	s.logger.Warn().
		Str("dead_letter_id", letter.ID).
		Str("operation", letter.Operation).
		Str("error", letter.Error).
		RawJSON("payload", nonEmpty(letter.Payload)).
		Time("at", letter.At).
		Msg("side channel operation failed")
	return nil
}

/* RedisSink keeps the newest dead letters in a capped Redis list
 * LPUSH then LTRIM in one transaction, so the list never exceeds max
 */
type RedisSink struct {
	client *redis.Client
	key    string
	max    int64
}

func NewRedisSink(client *redis.Client, key string, max int64) *RedisSink {
	if key == "" {
		key = DefaultDeadLetterKey
	}
	if max <= 0 {
		max = DefaultDeadLetterMax
	}
	return &RedisSink{client: client, key: key, max: max}
}

func (s *RedisSink) Put(ctx context.Context, letter DeadLetter) error {
	data, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("marshaling dead letter: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, s.max-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing dead letter: %w", err)
	}
	return nil
}

// List returns up to limit dead letters, newest first
func (s *RedisSink) List(ctx context.Context, limit int64) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = s.max
	}
	items, err := s.client.LRange(ctx, s.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	letters := make([]DeadLetter, 0, len(items))
	for _, item := range items {
		var letter DeadLetter
		if err := json.Unmarshal([]byte(item), &letter); err != nil {
			continue
		}
		letters = append(letters, letter)
	}
	return letters, nil
}

// MultiSink writes to every sink and joins their errors
type MultiSink []Sink

func (m MultiSink) Put(ctx context.Context, letter DeadLetter) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, letter); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nonEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
