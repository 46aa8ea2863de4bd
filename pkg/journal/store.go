package journal

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/conditional/pkg/config"
)

// Store persists runs.
type Store interface {
	// Save persists a run. Saving an existing ID replaces it.
	Save(ctx context.Context, run *Run) error

	// Get returns the run with the given ID or ErrRunNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// Query returns matching runs, newest first.
	Query(ctx context.Context, filter Filter) ([]*Run, error)

	// Count returns the number of matching runs, ignoring Limit and Offset.
	Count(ctx context.Context, filter Filter) (int64, error)

	// DeleteBefore deletes runs started before cutoff and returns how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(cfg *config.JournalConfig) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMattn, DriverModernc, "":
		return NewSQLiteStore(&SQLiteConfig{
			Driver:       cfg.Driver,
			Path:         cfg.Path,
			MaxOpenConns: cfg.MaxOpenConns,
			WALMode:      cfg.WALMode,
			BusyTimeout:  cfg.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
