package webhook

import (
	"context"
	"errors"
	"time"
)

/* hold is a held event lock
 * A background renewal extends it every LockTTL/3 while work runs; if the
 * lock is lost, ctx is cancelled so in-flight dispatch stops, and the
 * token fences every write made through SaveHeld
 */
type hold struct {
	id     string
	token  string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Service) acquire(ctx context.Context, id string) (*hold, error) {
	token, err := s.Repo.Lock(ctx, id, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	hctx, cancel := context.WithCancel(ctx)
	h := &hold{id: id, token: token, ctx: hctx, cancel: cancel, done: make(chan struct{})}
	go s.renew(h)
	return h, nil
}

func (s *Service) renew(h *hold) {
	defer close(h.done)
	ticker := time.NewTicker(max(s.opts.LockTTL/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			err := s.Repo.Extend(h.ctx, h.id, h.token, s.opts.LockTTL)
			switch {
			case err == nil:
			case errors.Is(err, ErrLocked):
				s.logger.Warn().Str("event_id", h.id).Msg("event lock lost, abandoning attempt")
				h.cancel()
				return
			case h.ctx.Err() != nil:
				return
			default:
				s.logger.Warn().Err(err).Str("event_id", h.id).Msg("extending event lock")
			}
		}
	}
}

// release stops renewal and drops the lock if it is still ours
func (s *Service) release(h *hold) {
	h.cancel()
	<-h.done
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Repo.Unlock(ctx, h.id, h.token); err != nil && !errors.Is(err, ErrLocked) {
		s.logger.Warn().Err(err).Str("event_id", h.id).Msg("releasing event lock")
	}
}
