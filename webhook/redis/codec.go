package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/sumit-gateway/webhook"
)

// encode flattens an event into hash fields. Absent timestamps are stored as "".
func encode(ev webhook.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":              ev.ID,
		"event_type":      ev.EventType,
		"payload":         string(ev.Payload),
		"status":          ev.Status.String(),
		"retry_count":     ev.RetryCount,
		"next_retry_at":   formatTime(ev.NextRetryAt),
		"sent_at":         formatTime(ev.SentAt),
		"last_error":      ev.LastError,
		"transaction_id":  ev.TransactionID,
		"subscription_id": ev.SubscriptionID,
		"created_at":      ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":      ev.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decode(data map[string]string) (webhook.Event, error) {
	status, err := webhook.NewStatus(data["status"])
	if err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event %s: %w", data["id"], err)
	}
	retryCount, err := strconv.Atoi(data["retry_count"])
	if err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event %s retry_count: %w", data["id"], err)
	}
	nextRetryAt, err := parseTime(data["next_retry_at"])
	if err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event %s next_retry_at: %w", data["id"], err)
	}
	sentAt, err := parseTime(data["sent_at"])
	if err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event %s sent_at: %w", data["id"], err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event %s created_at: %w", data["id"], err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return webhook.Event{}, fmt.Errorf("decoding event %s updated_at: %w", data["id"], err)
	}

	return webhook.Event{
		ID:             data["id"],
		EventType:      data["event_type"],
		Payload:        []byte(data["payload"]),
		Status:         status,
		RetryCount:     retryCount,
		NextRetryAt:    nextRetryAt,
		SentAt:         sentAt,
		LastError:      data["last_error"],
		TransactionID:  data["transaction_id"],
		SubscriptionID: data["subscription_id"],
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
