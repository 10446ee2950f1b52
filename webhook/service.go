package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/sumit-gateway/backoff"
	"github.com/marcelsud/sumit-gateway/webhook/payload"
	"github.com/rs/zerolog"
)

const (
	DefaultRetryCeiling = 5
	DefaultConcurrency  = 4
	DefaultBatchSize    = 100
	DefaultLockTTL      = 5 * time.Minute
	DefaultPendingGrace = time.Minute
)

// UseCase defines the delivery engine operations
type UseCase interface {
	CreatePending(ctx context.Context, eventType string, data json.RawMessage, related RelatedIDs) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Send(ctx context.Context, id string) (bool, error)
	ScheduleRetry(ctx context.Context, id string, attemptOverride int) (Event, error)
	CanRetry(ev Event, mode RetryMode, now time.Time) bool
	Retry(ctx context.Context, id string) (bool, error)
	Sweep(ctx context.Context, opts SweepOptions) (SweepReport, error)
}

/* Options tunes the engine
 * RetryCeiling bounds automatic retries; manual retries are unbounded
 * PendingGrace is how long a Pending event may wait before a sweep picks it up
 */
type Options struct {
	RetryCeiling int
	Concurrency  int
	BatchSize    int
	LockTTL      time.Duration
	PendingGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryCeiling <= 0 {
		o.RetryCeiling = DefaultRetryCeiling
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.LockTTL <= 0 {
		o.LockTTL = DefaultLockTTL
	}
	if o.PendingGrace <= 0 {
		o.PendingGrace = DefaultPendingGrace
	}
	return o
}

// Option configures optional Service collaborators
type Option func(*Service)

// WithBackoff replaces the default 10^n strategy
func WithBackoff(strategy backoff.Strategy) Option {
	return func(s *Service) { s.backoff = strategy }
}

// WithNotifier registers lifecycle callbacks
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

/* Service is the delivery and retry engine
 * Uses pointer semantics as it's an API, not data
 */
type Service struct {
	Repo       Repository
	dispatcher Dispatcher
	backoff    backoff.Strategy
	notifier   Notifier
	logger     zerolog.Logger
	now        func() time.Time
	opts       Options
}

// NewService creates a new delivery service with dependency injection
func NewService(repo Repository, dispatcher Dispatcher, opts Options, fns ...Option) *Service {
	s := &Service{
		Repo:       repo,
		dispatcher: dispatcher,
		backoff:    backoff.Default(),
		notifier:   nopNotifier{},
		logger:     zerolog.Nop(),
		now:        time.Now,
		opts:       opts.withDefaults(),
	}
	for _, fn := range fns {
		fn(s)
	}
	return s
}

// RetryCeiling returns the automatic retry bound in effect
func (s *Service) RetryCeiling() int {
	return s.opts.RetryCeiling
}

// CreatePending records a new event awaiting its first delivery
func (s *Service) CreatePending(ctx context.Context, eventType string, data json.RawMessage, related RelatedIDs) (Event, error) {
	if err := payload.ValidateEventType(eventType); err != nil || strings.Contains(eventType, "*") {
		return Event{}, fmt.Errorf("%w: event type %q", ErrInvalidEvent, eventType)
	}
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return Event{}, fmt.Errorf("%w: payload is not valid JSON", ErrInvalidEvent)
	}

	now := s.now().UTC()
	ev := Event{
		ID:             uuid.New().String(),
		EventType:      eventType,
		Payload:        data,
		Status:         Pending,
		TransactionID:  related.TransactionID,
		SubscriptionID: related.SubscriptionID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, ev); err != nil {
		return Event{}, fmt.Errorf("storing event: %w", err)
	}
	return ev, nil
}

// Get retrieves an event by ID
func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	ev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("getting event: %w", err)
	}
	return ev, nil
}

/* Send attempts delivery once
 * An already Sent event returns true without being delivered again
 * A failed delivery records LastError and returns false with a nil error,
 * leaving status and retry fields to ScheduleRetry
 */
func (s *Service) Send(ctx context.Context, id string) (bool, error) {
	h, err := s.acquire(ctx, id)
	if err != nil {
		return false, fmt.Errorf("locking event %s: %w", id, err)
	}
	defer s.release(h)

	ev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("getting event: %w", err)
	}
	if ev.Status == Sent {
		return true, nil
	}
	return s.deliver(ctx, h, &ev)
}

/* ScheduleRetry records a failed attempt
 * RetryCount is incremented; at the ceiling the event becomes Failed,
 * otherwise Retrying with NextRetryAt = now + backoff(attempt)
 * attemptOverride > 0 replaces RetryCount as the backoff attempt
 */
func (s *Service) ScheduleRetry(ctx context.Context, id string, attemptOverride int) (Event, error) {
	h, err := s.acquire(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("locking event %s: %w", id, err)
	}
	defer s.release(h)

	ev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("getting event: %w", err)
	}
	if ev.Status == Sent {
		return ev, ErrAlreadySent
	}
	if err := s.scheduleRetry(ctx, h, &ev, attemptOverride); err != nil {
		return Event{}, err
	}
	return ev, nil
}

/* CanRetry reports whether ev may be re-attempted now
 * Automatic: Failed, or Retrying and due, while under the ceiling
 * Manual: anything not yet Sent
 */
func (s *Service) CanRetry(ev Event, mode RetryMode, now time.Time) bool {
	if ev.Status == Sent {
		return false
	}
	if mode == Manual {
		return true
	}
	if ev.RetryCount >= s.opts.RetryCeiling {
		return false
	}
	switch ev.Status {
	case Failed:
		return true
	case Retrying:
		return ev.NextRetryAt != nil && !ev.NextRetryAt.After(now)
	default:
		return false
	}
}

/* Retry is an operator-driven retry
 * It ignores the ceiling and the schedule, sends, and reschedules on failure
 * An event locked by another attempt returns ErrLocked
 */
func (s *Service) Retry(ctx context.Context, id string) (bool, error) {
	res, err := s.process(ctx, id, Manual)
	if err != nil {
		return false, err
	}
	return res == outcomeSent, nil
}

/* deliver dispatches ev under h and persists the result
 * Dispatch runs on the hold's context so it stops when the lock is lost
 */
func (s *Service) deliver(ctx context.Context, h *hold, ev *Event) (bool, error) {
	derr := s.dispatcher.Dispatch(h.ctx, *ev)
	now := s.now().UTC()
	ev.UpdatedAt = now

	if derr == nil {
		ev.Status = Sent
		ev.SentAt = &now
		ev.NextRetryAt = nil
		ev.LastError = ""
		if err := s.Repo.SaveHeld(ctx, *ev, h.token); err != nil {
			return false, fmt.Errorf("saving sent event: %w", err)
		}
		s.logger.Info().Str("event_id", ev.ID).Str("event_type", ev.EventType).Msg("webhook sent")
		s.notifier.EventSent(ctx, *ev)
		return true, nil
	}

	ev.LastError = derr.Error()
	if err := s.Repo.SaveHeld(ctx, *ev, h.token); err != nil {
		return false, fmt.Errorf("saving delivery error: %w", err)
	}
	s.logger.Warn().Err(derr).Str("event_id", ev.ID).Int("retry_count", ev.RetryCount).Msg("webhook delivery failed")
	return false, nil
}

// scheduleRetry applies the retry transition under h
func (s *Service) scheduleRetry(ctx context.Context, h *hold, ev *Event, attemptOverride int) error {
	ev.RetryCount++
	attempt := attemptOverride
	if attempt <= 0 {
		attempt = ev.RetryCount
	}

	now := s.now().UTC()
	ev.UpdatedAt = now
	if ev.RetryCount >= s.opts.RetryCeiling {
		ev.Status = Failed
		ev.NextRetryAt = nil
	} else {
		next := now.Add(s.backoff.Wait(attempt))
		ev.Status = Retrying
		ev.NextRetryAt = &next
	}

	if err := s.Repo.SaveHeld(ctx, *ev, h.token); err != nil {
		return fmt.Errorf("saving retry schedule: %w", err)
	}

	if ev.Status == Failed {
		s.logger.Error().Str("event_id", ev.ID).Int("retry_count", ev.RetryCount).Str("last_error", ev.LastError).Msg("webhook exhausted retries")
		s.notifier.RetriesExhausted(ctx, *ev)
		return nil
	}
	s.logger.Debug().Str("event_id", ev.ID).Time("next_retry_at", *ev.NextRetryAt).Msg("webhook retry scheduled")
	return nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeRetrying
	outcomeFailed
)

/* process runs one send-then-reschedule cycle under the event lock
 * A panic anywhere in the cycle, taking the lock included, is recovered;
 * once the lock is held the event is marked Failed with the panic captured
 */
func (s *Service) process(ctx context.Context, id string, mode RetryMode) (res outcome, err error) {
	var h *hold
	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic processing event %s: %v", id, r)
			s.logger.Error().Str("event_id", id).Interface("panic", r).Msg("webhook processing panicked")
			res, err = outcomeFailed, perr
			if h != nil {
				err = errors.Join(perr, s.markFailed(ctx, h, perr))
			} else {
				res = outcomeSkipped
			}
		}
		if h != nil {
			s.release(h)
		}
	}()

	h, err = s.acquire(ctx, id)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("locking event %s: %w", id, err)
	}

	ev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("getting event: %w", err)
	}
	if !s.eligible(ev, mode) {
		if ev.Status == Sent {
			return outcomeSent, nil
		}
		return outcomeSkipped, nil
	}

	sent, err := s.deliver(ctx, h, &ev)
	if err != nil {
		return outcomeSkipped, err
	}
	if sent {
		return outcomeSent, nil
	}

	if err := s.scheduleRetry(ctx, h, &ev, 0); err != nil {
		return outcomeSkipped, err
	}
	if ev.Status == Failed {
		return outcomeFailed, nil
	}
	return outcomeRetrying, nil
}

func (s *Service) eligible(ev Event, mode RetryMode) bool {
	now := s.now()
	if ev.Status == Pending && mode == Automatic {
		return !ev.CreatedAt.After(now.Add(-s.opts.PendingGrace))
	}
	return s.CanRetry(ev, mode, now)
}

// markFailed stores a Failed status with cause as LastError under h
func (s *Service) markFailed(ctx context.Context, h *hold, cause error) error {
	ev, err := s.Repo.Get(ctx, h.id)
	if err != nil {
		return fmt.Errorf("getting event: %w", err)
	}
	now := s.now().UTC()
	ev.Status = Failed
	ev.NextRetryAt = nil
	ev.LastError = cause.Error()
	ev.UpdatedAt = now
	if err := s.Repo.SaveHeld(ctx, ev, h.token); err != nil {
		return fmt.Errorf("saving failed event: %w", err)
	}
	return nil
}
