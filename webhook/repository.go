package webhook

import (
	"context"
	"time"
)

// Reader provides read operations for events
type Reader interface {
	Get(ctx context.Context, id string) (Event, error)
	// ListDue returns Retrying events with NextRetryAt <= now, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]Event, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Event, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// Writer provides write operations for events
type Writer interface {
	Create(ctx context.Context, ev Event) error
	/* Save replaces the stored record in one atomic write
	 * Readers never observe a status without its matching retry fields
	 */
	Save(ctx context.Context, ev Event) error
	// SaveHeld is Save fenced on a lock token; ErrLocked when token no longer holds the event
	SaveHeld(ctx context.Context, ev Event, token string) error
}

/* Locker serialises mutations of a single event
 * Lock returns a token, or ErrLocked when another holder owns the event
 * The lock expires after ttl unless extended, so a crashed holder cannot block it forever
 * Extend and Unlock return ErrLocked once the token no longer holds the lock
 */
type Locker interface {
	Lock(ctx context.Context, id string, ttl time.Duration) (token string, err error)
	Extend(ctx context.Context, id, token string, ttl time.Duration) error
	Unlock(ctx context.Context, id, token string) error
}

// Repository combines the event store operations
type Repository interface {
	Reader
	Writer
	Locker
	Close(ctx context.Context) error
}
