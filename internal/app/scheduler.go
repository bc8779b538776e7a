package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler refreshes configured symbol caches on a cron schedule.
// Each tick appends from the cache's end up to yesterday; the
// reconciliation engine decides per symbol whether anything is missing.
type Scheduler struct {
	app  *App
	cron *cron.Cron
}

// NewScheduler creates a scheduler for the app's configured symbols.
func NewScheduler(a *App) *Scheduler {
	return &Scheduler{
		app:  a,
		cron: cron.New(cron.WithSeconds()),
	}
}

// Start registers the refresh job and starts the cron loop. The job stops
// launching work once ctx is cancelled; in-flight writes finish.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := s.app.Config.Schedule.Cron
	symbols := s.app.Config.Schedule.Symbols

	if _, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.refresh(ctx, symbols)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.app.Logger.Info().Str("cron", spec).Int("symbols", len(symbols)).Msg("Refresh scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.app.Logger.Info().Msg("Refresh scheduler stopped")
}

func (s *Scheduler) refresh(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		return
	}

	// Append-to-yesterday window (end exclusive at today). Symbols without
	// a cache fall back to a year-to-date full fetch via the planner's
	// no-cache rule.
	now := time.Now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	report := s.app.Reconciler.ReconcileBatch(ctx, symbols, from, now)
	if failed := report.Failed(); len(failed) > 0 {
		for _, res := range failed {
			s.app.Logger.Warn().Str("run_id", report.RunID).
				Str("symbol", res.Symbol).Err(res.Err).
				Msg("Scheduled refresh failed for symbol")
		}
	}
}
