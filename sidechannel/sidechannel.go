// Package sidechannel runs best-effort operations off the caller's path.
// A failed, panicking, timed out or dropped operation never reaches the
// caller: it becomes a dead letter in an isolated sink.
package sidechannel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxInFlight = 64
)

// Task is one best-effort operation
type Task func(ctx context.Context) error

/* Options configures a Runner
 * MaxInFlight bounds concurrent tasks; a task submitted while the runner is
 * saturated is dropped to the dead-letter sink instead of blocking
 */
type Options struct {
	Timeout     time.Duration
	MaxInFlight int64
}

// Runner executes tasks in the background. Safe for concurrent use.
type Runner struct {
	sink    Sink
	logger  zerolog.Logger
	timeout time.Duration
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	now     func() time.Time
}

// New creates a runner that reports failures to sink
func New(sink Sink, opts Options, logger zerolog.Logger) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &Runner{
		sink:    sink,
		logger:  logger,
		timeout: opts.Timeout,
		sem:     semaphore.NewWeighted(opts.MaxInFlight),
		now:     time.Now,
	}
}

/* Go starts task and returns immediately
 * The task runs detached from ctx cancellation but keeps its values,
 * bounded by the runner timeout
 */
func (r *Runner) Go(ctx context.Context, name string, payload any, task Task) {
	if !r.sem.TryAcquire(1) {
		r.deadLetter(ctx, name, payload, ErrSaturated)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)

		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.run(tctx, task); err != nil {
			r.deadLetter(tctx, name, payload, err)
		}
	}()
}

func (r *Runner) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return task(ctx)
}

func (r *Runner) deadLetter(ctx context.Context, name string, payload any, cause error) {
	letter, err := NewDeadLetter(uuid.New().String(), name, payload, cause, r.now())
	if err != nil {
		r.logger.Error().Err(err).Str("operation", name).Msg("encoding dead letter")
		return
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.sink.Put(sctx, letter); err != nil {
		// last resort, the sink itself is down
		r.logger.Error().Err(err).Str("operation", name).Str("cause", letter.Error).Msg("dead letter sink failed")
	}
}

// Wait blocks until every started task has finished or ctx is done
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
