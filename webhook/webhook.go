package webhook

import (
	"encoding/json"
	"time"
)

/* Event is an outbound notification owned by the delivery engine
 * Producers create it and read its status, only the Service mutates it
 * Status, RetryCount and NextRetryAt are always written together
 */
type Event struct {
	ID             string
	EventType      string
	Payload        json.RawMessage
	Status         Status
	RetryCount     int
	NextRetryAt    *time.Time
	SentAt         *time.Time
	LastError      string
	TransactionID  string
	SubscriptionID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RelatedIDs links an event to the gateway records it reports on
type RelatedIDs struct {
	TransactionID  string
	SubscriptionID string
}
