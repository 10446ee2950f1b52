package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/sumit-gateway/webhook"
)

// Sweeper runs the webhook sweep on a fixed interval and reports heartbeats
type Sweeper struct {
	app      *App
	id       string
	interval time.Duration
	opts     webhook.SweepOptions
}

// NewSweeper creates a sweeper with a random id
func (a *App) NewSweeper(interval time.Duration, opts webhook.SweepOptions) *Sweeper {
	return &Sweeper{
		app:      a,
		id:       uuid.New().String(),
		interval: interval,
		opts:     opts,
	}
}

// ID identifies the sweeper in heartbeats
func (s *Sweeper) ID() string {
	return s.id
}

// RunOnce performs one sweep
func (s *Sweeper) RunOnce(ctx context.Context) (webhook.SweepReport, error) {
	s.beat(ctx, "sweeping", 0)
	report, err := s.app.Webhooks.Sweep(ctx, s.opts)
	s.beat(ctx, "idle", report.Claimed)
	return report, err
}

// Run sweeps immediately and then every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	logger := s.app.Logger.With().Str("sweeper_id", s.id).Logger()
	logger.Info().Dur("interval", s.interval).Msg("sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("sweep failed")
		}
		select {
		case <-ctx.Done():
			logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) beat(ctx context.Context, status string, claimed int) {
	if s.app.Redis == nil || ctx.Err() != nil {
		return
	}
	if err := s.app.Redis.SetSweeperHeartbeat(ctx, s.id, status, claimed); err != nil {
		s.app.Logger.Warn().Err(err).Str("sweeper_id", s.id).Msg("heartbeat failed")
	}
}
