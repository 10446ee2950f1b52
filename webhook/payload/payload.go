// Package payload builds the Standard Webhooks envelope sent to webhook targets.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// eventTypePattern: hierarchical, full-stop delimited, [a-zA-Z0-9_]
var eventTypePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

var (
	ErrEmptyType   = errors.New("event type cannot be empty")
	ErrInvalidType = errors.New("event type must be hierarchical and contain only [a-zA-Z0-9_.]")
	ErrInvalidData = errors.New("data must be a JSON object or value")
)

/* Envelope is the body POSTed to a webhook target
 * {"type": "payment.completed", "timestamp": "...", "data": {...}}
 */
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps event data in an envelope stamped at the given time
func New(eventType string, data json.RawMessage, at time.Time) (Envelope, error) {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	env := Envelope{
		Type:      eventType,
		Timestamp: at.UTC(),
		Data:      data,
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("validating envelope: %w", err)
	}
	return env, nil
}

// Validate checks the envelope can be delivered
func (e Envelope) Validate() error {
	if e.Type == "" {
		return ErrEmptyType
	}
	if !eventTypePattern.MatchString(e.Type) {
		return fmt.Errorf("%w: %s", ErrInvalidType, e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if !json.Valid(e.Data) {
		return ErrInvalidData
	}
	return nil
}

// Bytes returns the minified JSON body
func (e Envelope) Bytes() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	return b, nil
}

// Parse decodes and validates an envelope
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("validating envelope: %w", err)
	}
	return env, nil
}

// ValidateEventType validates an event type or a filter pattern.
// Patterns may end in ".*" and "*" alone matches everything.
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return ErrEmptyType
	}
	if eventType == "*" {
		return nil
	}
	if !eventTypePattern.MatchString(strings.TrimSuffix(eventType, ".*")) {
		return fmt.Errorf("%w: %s", ErrInvalidType, eventType)
	}
	return nil
}

// MatchEventType reports whether eventType matches any pattern.
// No patterns means accept all; "payment.*" matches "payment.completed"
// and "payment.refund.created" but not "payment".
func MatchEventType(patterns []string, eventType string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		switch {
		case p == "*", p == eventType:
			return true
		case strings.HasSuffix(p, ".*"):
			if strings.HasPrefix(eventType, strings.TrimSuffix(p, "*")) {
				return true
			}
		}
	}
	return false
}
