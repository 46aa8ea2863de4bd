package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/conditional/pkg/config"
)

// PrunerOption configures a Pruner.
type PrunerOption func(*Pruner)

// WithPruneHook registers a function called with the number of runs
// deleted by each successful Prune.
func WithPruneHook(hook func(deleted int64)) PrunerOption {
	return func(p *Pruner) {
		p.hook = hook
	}
}

// WithPrunerClock sets the clock used to compute the age cutoff.
func WithPrunerClock(clock func() time.Time) PrunerOption {
	return func(p *Pruner) {
		p.now = clock
	}
}

// Pruner enforces retention on a Store.
type Pruner struct {
	store     Store
	config    *config.RetentionConfig
	logger    *slog.Logger
	scheduler *Scheduler
	hook      func(int64)
	now       func() time.Time
}

// NewPruner creates a pruner. A nil cfg uses the configuration defaults.
func NewPruner(store Store, cfg *config.RetentionConfig, opts ...PrunerOption) *Pruner {
	if cfg == nil {
		cfg = &config.RetentionConfig{
			Days:          config.DefaultRetentionDays,
			PruneSchedule: config.DefaultRetentionSchedule,
		}
	}

	p := &Pruner{
		store:  store,
		config: cfg,
		logger: slog.Default().With("component", "journal.retention"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes runs older than the retention period, then the oldest runs
// beyond MaxRuns. Returns the total number of runs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxRuns > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total == 0 {
		p.logger.Debug("no runs pruned",
			"retention_days", p.config.Days,
			"max_runs", p.config.MaxRuns,
		)
	} else {
		p.logger.Info("journal pruning completed",
			"total_deleted", total,
			"retention_days", p.config.Days,
			"max_runs", p.config.MaxRuns,
		)
	}

	if p.hook != nil {
		p.hook(total)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)
	p.logger.Debug("pruning by age", "cutoff_time", cutoff)

	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, &RetentionError{RetentionDays: p.config.Days, Cause: err}
	}
	return deleted, nil
}

// pruneByCount keeps the newest MaxRuns runs. Runs sharing the start time
// of the oldest kept run survive.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, Filter{})
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	if count <= p.config.MaxRuns {
		return 0, nil
	}

	kept, err := p.store.Query(ctx, Filter{Limit: 1, Offset: int(p.config.MaxRuns) - 1})
	if err != nil {
		return 0, fmt.Errorf("failed to query runs: %w", err)
	}
	if len(kept) == 0 {
		return 0, nil
	}

	cutoff := kept[0].StartedAt
	p.logger.Info("run count exceeds limit, pruning oldest",
		"current_count", count,
		"max_runs", p.config.MaxRuns,
		"cutoff_time", cutoff,
	)

	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// Start starts scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
