// Package jobs schedules the background work the API does not do inline:
// the nightly public stats digest pushed to WebSocket subscribers and the
// periodic refresh-token sweep.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// Config holds the cron schedules, in robfig/cron spec syntax.
type Config struct {
	DigestSchedule string
	SweepSchedule  string
}

// Runner owns the cron scheduler and the jobs registered on it.
type Runner struct {
	cron        *cron.Cron
	analytics   ports.AnalyticsService
	broadcaster ports.EventBroadcaster
	tokens      ports.TokenStore
	logger      *slog.Logger
}

// NewRunner wires the scheduled jobs. Start must be called to begin
// execution.
func NewRunner(
	cfg Config,
	analytics ports.AnalyticsService,
	broadcaster ports.EventBroadcaster,
	tokens ports.TokenStore,
	logger *slog.Logger,
) (*Runner, error) {
	r := &Runner{
		cron:        cron.New(),
		analytics:   analytics,
		broadcaster: broadcaster,
		tokens:      tokens,
		logger:      logger.With("component", "jobs"),
	}

	if _, err := r.cron.AddFunc(cfg.DigestSchedule, r.RunStatsDigest); err != nil {
		return nil, err
	}
	if _, err := r.cron.AddFunc(cfg.SweepSchedule, r.RunTokenSweep); err != nil {
		return nil, err
	}

	return r, nil
}

// Start begins running the scheduled jobs in their own goroutines.
func (r *Runner) Start() {
	r.logger.Info("starting scheduled jobs")
	r.cron.Start()
}

// Stop halts the scheduler and waits for any running job to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("scheduled jobs stopped")
}

// RunStatsDigest recomputes the public stats and broadcasts them as a
// STATS_DIGEST event to every connected client.
func (r *Runner) RunStatsDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := r.analytics.PublicStats(ctx)
	if err != nil {
		r.logger.Error("stats digest failed", "error", err)
		return
	}

	if err := r.broadcaster.Broadcast(domain.Event{
		Type:    domain.EventStatsDigest,
		Payload: stats,
	}); err != nil {
		r.logger.Error("stats digest broadcast failed", "error", err)
		return
	}

	r.logger.Info("stats digest broadcast",
		"total_issues", stats.TotalIssues,
		"resolution_rate", stats.ResolutionRate,
	)
}

// RunTokenSweep drops refresh tokens that have expired.
func (r *Runner) RunTokenSweep() {
	removed := r.tokens.Sweep(time.Now())
	if removed > 0 {
		r.logger.Info("swept expired refresh tokens", "removed", removed)
	}
}
