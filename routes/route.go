package routes

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marcelsud/sumit-gateway/webhook/payload"
	"github.com/marcelsud/sumit-gateway/webhook/signature"
)

/* Route is an outbound webhook target
 * Events whose type matches EventTypes are delivered to TargetURL
 */
type Route struct {
	TargetID       string
	TargetURL      string
	SigningSecret  string        // Standard Webhooks signing secret (whsec_ prefix)
	EventTypes     []string      // e.g. ["payment.completed", "subscription.*"], empty accepts all
	ExpectedStatus int           // 200, 201, 202 or 204
	Timeout        time.Duration // zero uses the dispatcher default
}

// Validate checks if the route configuration is valid
func (r *Route) Validate() error {
	if r.TargetID == "" {
		return fmt.Errorf("target_id cannot be empty")
	}
	if r.TargetURL == "" {
		return fmt.Errorf("target_url cannot be empty for target %s", r.TargetID)
	}
	u, err := url.Parse(r.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target_url must be an absolute http(s) URL for target %s", r.TargetID)
	}
	switch r.ExpectedStatus {
	case 200, 201, 202, 204:
	default:
		return fmt.Errorf("expected_status must be 200, 201, 202 or 204 for target %s (got %d)", r.TargetID, r.ExpectedStatus)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative for target %s", r.TargetID)
	}
	if r.SigningSecret != "" {
		if !strings.HasPrefix(r.SigningSecret, signature.SecretPrefix) {
			return fmt.Errorf("signing_secret must start with %s for target %s", signature.SecretPrefix, r.TargetID)
		}
		if _, err := signature.ParseSecret(r.SigningSecret); err != nil {
			return fmt.Errorf("invalid signing_secret for target %s: %w", r.TargetID, err)
		}
	}
	for _, eventType := range r.EventTypes {
		if err := payload.ValidateEventType(eventType); err != nil {
			return fmt.Errorf("invalid event_type '%s' for target %s: %w", eventType, r.TargetID, err)
		}
	}
	return nil
}

// Accepts reports whether an event type is delivered to this route
func (r *Route) Accepts(eventType string) bool {
	return payload.MatchEventType(r.EventTypes, eventType)
}
