// Package memory is an in-process webhook.Repository for tests and
// single-node deployments. It has the same locking semantics as the
// Redis store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/sumit-gateway/webhook"
)

type lease struct {
	token   string
	expires time.Time
}

type Repository struct {
	mu     sync.Mutex
	events map[string]webhook.Event
	locks  map[string]lease
	now    func() time.Time
}

// NewRepository creates an empty repository
func NewRepository() *Repository {
	return &Repository{
		events: make(map[string]webhook.Event),
		locks:  make(map[string]lease),
		now:    time.Now,
	}
}

// Create stores a new event
func (r *Repository) Create(ctx context.Context, ev webhook.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[ev.ID]; exists {
		return fmt.Errorf("creating event %s: already exists", ev.ID)
	}
	r.events[ev.ID] = clone(ev)
	return nil
}

// Save replaces an existing event
func (r *Repository) Save(ctx context.Context, ev webhook.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ev)
}

// SaveHeld replaces an existing event while token holds its lease
func (r *Repository) SaveHeld(ctx context.Context, ev webhook.Event, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.holds(ev.ID, token) {
		return fmt.Errorf("%w: %s", webhook.ErrLocked, ev.ID)
	}
	return r.save(ev)
}

func (r *Repository) save(ev webhook.Event) error {
	if _, exists := r.events[ev.ID]; !exists {
		return fmt.Errorf("%w: %s", webhook.ErrNotFound, ev.ID)
	}
	r.events[ev.ID] = clone(ev)
	return nil
}

// Get retrieves an event by ID
func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, exists := r.events[id]
	if !exists {
		return webhook.Event{}, fmt.Errorf("%w: %s", webhook.ErrNotFound, id)
	}
	return clone(ev), nil
}

// ListDue returns Retrying events due at now, earliest first
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]webhook.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []webhook.Event
	for _, ev := range r.events {
		if ev.Status == webhook.Retrying && ev.NextRetryAt != nil && !ev.NextRetryAt.After(now) {
			out = append(out, clone(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRetryAt.Before(*out[j].NextRetryAt) })
	return truncate(out, limit), nil
}

// ListByStatus returns events in status, oldest first
func (r *Repository) ListByStatus(ctx context.Context, status webhook.Status, limit int) ([]webhook.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []webhook.Event
	for _, ev := range r.events {
		if ev.Status == status {
			out = append(out, clone(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

// CountByStatus returns the number of events per status
func (r *Repository) CountByStatus(ctx context.Context) (map[webhook.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[webhook.Status]int64, 4)
	for _, s := range webhook.Statuses() {
		counts[s] = 0
	}
	for _, ev := range r.events {
		counts[ev.Status]++
	}
	return counts, nil
}

// Lock takes the per-event lease
func (r *Repository) Lock(ctx context.Context, id string, ttl time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if l, held := r.locks[id]; held && now.Before(l.expires) {
		return "", fmt.Errorf("%w: %s", webhook.ErrLocked, id)
	}
	token := uuid.New().String()
	r.locks[id] = lease{token: token, expires: now.Add(ttl)}
	return token, nil
}

// Extend pushes the lease expiry to now+ttl if token still holds it
func (r *Repository) Extend(ctx context.Context, id, token string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.holds(id, token) {
		return fmt.Errorf("%w: %s", webhook.ErrLocked, id)
	}
	r.locks[id] = lease{token: token, expires: r.now().Add(ttl)}
	return nil
}

// Unlock drops the lease only if token still owns it
func (r *Repository) Unlock(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.holds(id, token) {
		return fmt.Errorf("%w: %s", webhook.ErrLocked, id)
	}
	delete(r.locks, id)
	return nil
}

// holds reports whether token owns an unexpired lease on id. Callers hold mu.
func (r *Repository) holds(id, token string) bool {
	l, held := r.locks[id]
	return held && l.token == token && r.now().Before(l.expires)
}

// Close is a no-op
func (r *Repository) Close(ctx context.Context) error {
	return nil
}

func clone(ev webhook.Event) webhook.Event {
	out := ev
	if ev.Payload != nil {
		out.Payload = append([]byte(nil), ev.Payload...)
	}
	if ev.NextRetryAt != nil {
		t := *ev.NextRetryAt
		out.NextRetryAt = &t
	}
	if ev.SentAt != nil {
		t := *ev.SentAt
		out.SentAt = &t
	}
	return out
}

func truncate(events []webhook.Event, limit int) []webhook.Event {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}

var _ webhook.Repository = (*Repository)(nil)
