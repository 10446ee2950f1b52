package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

/* SweepOptions selects what a sweep re-attempts
 * Due Retrying events and stale Pending events are always included
 * IncludeFailed adds Failed events as a bulk manual retry
 */
type SweepOptions struct {
	IncludeFailed bool
}

// SweepReport summarises one sweep
type SweepReport struct {
	Claimed  int
	Sent     int
	Retrying int
	Failed   int
	Skipped  int
	Errors   []error
	Duration time.Duration
}

type sweepItem struct {
	id   string
	mode RetryMode
}

/* Sweep re-attempts every eligible event independently
 * Items run on at most Concurrency goroutines; one item's error or panic
 * is recorded in the report and never stops the others
 * Events held by another attempt are counted as skipped
 * The returned error is only set when selecting candidates fails
 */
func (s *Service) Sweep(ctx context.Context, opts SweepOptions) (SweepReport, error) {
	start := time.Now()
	items, err := s.candidates(ctx, opts)
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{Claimed: len(items)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for _, it := range items {
		if ctx.Err() != nil {
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			res, err := s.process(ctx, it.id, it.mode)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && !errors.Is(err, ErrLocked) {
				report.Errors = append(report.Errors, fmt.Errorf("event %s: %w", it.id, err))
			}
			switch res {
			case outcomeSent:
				report.Sent++
			case outcomeRetrying:
				report.Retrying++
			case outcomeFailed:
				report.Failed++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	s.logger.Info().
		Int("claimed", report.Claimed).
		Int("sent", report.Sent).
		Int("retrying", report.Retrying).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Dur("duration", report.Duration).
		Msg("webhook sweep finished")
	return report, nil
}

func (s *Service) candidates(ctx context.Context, opts SweepOptions) ([]sweepItem, error) {
	now := s.now()
	limit := s.opts.BatchSize

	due, err := s.Repo.ListDue(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("listing due events: %w", err)
	}
	items := make([]sweepItem, 0, len(due))
	for _, ev := range due {
		items = append(items, sweepItem{id: ev.ID, mode: Automatic})
	}

	if len(items) < limit {
		pending, err := s.Repo.ListByStatus(ctx, Pending, limit-len(items))
		if err != nil {
			return nil, fmt.Errorf("listing pending events: %w", err)
		}
		cutoff := now.Add(-s.opts.PendingGrace)
		for _, ev := range pending {
			if !ev.CreatedAt.After(cutoff) {
				items = append(items, sweepItem{id: ev.ID, mode: Automatic})
			}
		}
	}

	if opts.IncludeFailed && len(items) < limit {
		failed, err := s.Repo.ListByStatus(ctx, Failed, limit-len(items))
		if err != nil {
			return nil, fmt.Errorf("listing failed events: %w", err)
		}
		for _, ev := range failed {
			items = append(items, sweepItem{id: ev.ID, mode: Manual})
		}
	}
	return items, nil
}
