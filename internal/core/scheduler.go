package core

// scheduler.go runs background maintenance for generation history.
//
// The retention job deletes history records older than the configured
// window. It runs once at start-up and then on every interval tick, logs
// failures and keeps going, and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig configures the history retention job.
type RetentionConfig struct {
	RetentionDays int           // Keep records this many days (default 30)
	CheckInterval time.Duration // How often to prune (default 24h)
}

// StartRetentionScheduler prunes history until ctx is cancelled. It is a
// no-op when the history store does not support pruning.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	pruner, ok := s.history.(HistoryPruner)
	if !ok {
		slog.Debug("history store does not support retention, scheduler disabled")
		return
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("history retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	s.runRetentionJob(ctx, pruner, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, pruner, cfg)
		}
	}
}

func (s *Service) runRetentionJob(ctx context.Context, pruner HistoryPruner, cfg RetentionConfig) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	pruned, err := pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned generation history",
		"records_pruned", pruned,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
