package git

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by a second concurrent Watch.
var ErrAlreadyRunning = errors.New("poller already running")

// Poller pulls a Repository on an interval.
type Poller struct {
	repo     *Repository
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	loaded  string
	skipped string
}

// NewPoller creates a poller. The current HEAD counts as loaded.
func NewPoller(repo *Repository, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		repo:     repo,
		interval: interval,
		logger:   logger.With("component", "definitions.git"),
	}
}

// Watch blocks, pulling every interval and calling onChange when a new
// commit touches the document, until ctx is done. Pull and callback errors
// are logged and polling continues.
func (p *Poller) Watch(ctx context.Context, onChange func() error) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	if head, err := p.repo.Head(); err == nil {
		p.setLoaded(head.SHA)
		p.logger.Info("git poller started", "interval", p.interval, "commit", head.Short())
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("git poller stopped")
			return nil
		case <-ticker.C:
			if _, err := p.Check(ctx, onChange); err != nil {
				p.logger.Error("definition poll failed", "error", err)
			}
		}
	}
}

// Check pulls once and reloads when the document changed. It reports
// whether onChange ran and succeeded. A commit whose document fails to
// load is remembered and not retried; the previous definitions stay live.
func (p *Poller) Check(ctx context.Context, onChange func() error) (bool, error) {
	result, err := p.repo.Pull(ctx)
	if err != nil {
		return false, err
	}
	if !result.HadChanges() {
		return false, nil
	}

	if !p.repo.Touches(result.Changed) {
		p.logger.Debug("commit does not touch definitions",
			"from", shortSHA(result.From), "to", shortSHA(result.To), "changed", result.Changed)
		p.mu.Lock()
		if p.skipped == "" {
			p.loaded = result.To
		}
		p.mu.Unlock()
		return false, nil
	}

	p.logger.Info("reloading definitions", "from", shortSHA(result.From), "to", shortSHA(result.To))
	if err := onChange(); err != nil {
		p.mu.Lock()
		p.skipped = result.To
		p.mu.Unlock()
		p.logger.Error("definitions at commit failed to load, keeping previous set",
			"commit", shortSHA(result.To), "loaded", shortSHA(p.Loaded()), "error", err)
		return false, err
	}

	p.setLoaded(result.To)
	return true, nil
}

// Loaded returns the SHA of the last commit whose document loaded.
func (p *Poller) Loaded() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Skipped returns the SHA of the last commit that failed to load, or "".
func (p *Poller) Skipped() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped
}

func (p *Poller) setLoaded(sha string) {
	p.mu.Lock()
	p.loaded = sha
	p.skipped = ""
	p.mu.Unlock()
}
