// Package notify fans lifecycle callbacks out to subscribers. Every
// subscriber runs as a best-effort side-channel operation: a slow or
// failing subscriber never delays or fails the transition that fired it.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/sidechannel"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/rs/zerolog"
)

/* Topic identifies a callback
 * Follows the state transitions: webhook sent, webhook exhausted retries,
 * and gateway call failed after every attempt
 */
type Topic int

const (
	TopicEventSent Topic = iota + 1
	TopicRetriesExhausted
	TopicCallFailed
)

// String returns the string representation of the topic
func (t Topic) String() string {
	switch t {
	case TopicEventSent:
		return "webhook.sent"
	case TopicRetriesExhausted:
		return "webhook.exhausted"
	case TopicCallFailed:
		return "api.call_failed"
	default:
		return "unknown"
	}
}

// NewTopic creates a Topic from a string
func NewTopic(s string) (Topic, error) {
	switch s {
	case "webhook.sent":
		return TopicEventSent, nil
	case "webhook.exhausted":
		return TopicRetriesExhausted, nil
	case "api.call_failed":
		return TopicCallFailed, nil
	default:
		return 0, fmt.Errorf("invalid topic: %q", s)
	}
}

func (t Topic) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Topic) UnmarshalText(b []byte) error {
	v, err := NewTopic(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Message is the payload handed to subscribers
type Message struct {
	Topic          Topic     `json:"topic"`
	EventID        string    `json:"event_id,omitempty"`
	EventType      string    `json:"event_type,omitempty"`
	RetryCount     int       `json:"retry_count,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Method         string    `json:"method,omitempty"`
	URL            string    `json:"url,omitempty"`
	Attempts       int       `json:"attempts,omitempty"`
	At             time.Time `json:"at"`
}

// Handler consumes one message. Its error goes to the dead-letter sink.
type Handler func(ctx context.Context, msg Message) error

type subscription struct {
	name    string
	handler Handler
}

// Hub implements webhook.Notifier and connector.Observer
type Hub struct {
	runner *sidechannel.Runner
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	subs map[Topic][]subscription
}

// NewHub creates a hub that runs subscribers on runner
func NewHub(runner *sidechannel.Runner, logger zerolog.Logger) *Hub {
	return &Hub{
		runner: runner,
		logger: logger,
		now:    time.Now,
		subs:   make(map[Topic][]subscription),
	}
}

// Subscribe registers handler for topic under name
func (h *Hub) Subscribe(topic Topic, name string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[topic] = append(h.subs[topic], subscription{name: name, handler: handler})
}

// SubscribeAll registers handler for every topic
func (h *Hub) SubscribeAll(name string, handler Handler) {
	for _, t := range []Topic{TopicEventSent, TopicRetriesExhausted, TopicCallFailed} {
		h.Subscribe(t, name, handler)
	}
}

// Publish hands msg to every subscriber of its topic and returns immediately
func (h *Hub) Publish(ctx context.Context, msg Message) {
	if msg.At.IsZero() {
		msg.At = h.now().UTC()
	}

	h.mu.RLock()
	subs := h.subs[msg.Topic]
	h.mu.RUnlock()

	h.logger.Debug().Str("topic", msg.Topic.String()).Int("subscribers", len(subs)).Msg("publishing notification")
	for _, sub := range subs {
		handler := sub.handler
		h.runner.Go(ctx, msg.Topic.String()+":"+sub.name, msg, func(ctx context.Context) error {
			return handler(ctx, msg)
		})
	}
}

func (h *Hub) EventSent(ctx context.Context, ev webhook.Event) {
	h.Publish(ctx, eventMessage(TopicEventSent, ev))
}

func (h *Hub) RetriesExhausted(ctx context.Context, ev webhook.Event) {
	h.Publish(ctx, eventMessage(TopicRetriesExhausted, ev))
}

func (h *Hub) CallFailed(ctx context.Context, failure connector.CallFailure) {
	msg := Message{
		Topic:    TopicCallFailed,
		Method:   failure.Method,
		URL:      failure.URL,
		Attempts: failure.Attempts,
	}
	if failure.Err != nil {
		msg.LastError = failure.Err.Error()
	}
	h.Publish(ctx, msg)
}

func eventMessage(topic Topic, ev webhook.Event) Message {
	return Message{
		Topic:          topic,
		EventID:        ev.ID,
		EventType:      ev.EventType,
		RetryCount:     ev.RetryCount,
		LastError:      ev.LastError,
		TransactionID:  ev.TransactionID,
		SubscriptionID: ev.SubscriptionID,
	}
}

var (
	_ webhook.Notifier   = (*Hub)(nil)
	_ connector.Observer = (*Hub)(nil)
)
