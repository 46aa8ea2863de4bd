package runner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Default pool sizing.
const (
	DefaultPoolWorkers   = 4
	DefaultPoolQueueSize = 1024
)

// PoolConfig contains configuration for a worker pool.
type PoolConfig struct {
	// Name identifies the pool in logs and metrics.
	Name string

	// Workers is the number of concurrent workers.
	// Default: 4
	Workers int

	// QueueSize is the capacity of the pending task queue. Submit blocks
	// while the queue is full.
	// Default: 1024
	QueueSize int
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	Name    string
	Workers int
	Queued  int
	Active  int
}

// PoolObserver receives pool statistics whenever a task is queued, started
// or finished.
type PoolObserver interface {
	ObservePool(stats PoolStats)
}

// PoolOption configures optional pool collaborators.
type PoolOption func(*Pool)

// WithPoolObserver attaches an observer for queue and worker statistics.
func WithPoolObserver(observer PoolObserver) PoolOption {
	return func(p *Pool) {
		p.observer = observer
	}
}

// WithPoolLogger sets the pool logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

type job struct {
	ctx    context.Context
	cancel context.CancelFunc
	task   Task
	handle *Handle
}

// Pool is a fixed-size worker pool implementing TaskRunner.
type Pool struct {
	name    string
	workers int
	queue   chan *job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	active   atomic.Int64
	observer PoolObserver
	logger   *slog.Logger
}

// NewPool creates a pool and starts its workers.
func NewPool(cfg PoolConfig, opts ...PoolOption) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPoolWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultPoolQueueSize
	}
	if cfg.Name == "" {
		cfg.Name = "pool"
	}

	p := &Pool{
		name:    cfg.Name,
		workers: cfg.Workers,
		queue:   make(chan *job, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "runner.pool", "pool", p.name)

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker(i)
	}

	p.logger.Debug("pool started", "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	return p
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Submit enqueues the task. If the queue is full Submit blocks until space
// frees up or ctx is done, in which case the handle resolves with ctx's error.
func (p *Pool) Submit(ctx context.Context, task Task) *Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return Resolved(false, ErrPoolClosed)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel)
	j := &job{ctx: taskCtx, cancel: cancel, task: task, handle: h}

	select {
	case p.queue <- j:
		p.observe()
	case <-ctx.Done():
		cancel()
		h.complete(false, ctx.Err(), false)
	}
	return h
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for j := range p.queue {
		p.run(id, j)
	}
}

func (p *Pool) run(id int, j *job) {
	defer j.cancel()

	// Cancelled before start: never run the task.
	if j.handle.IsDone() {
		p.observe()
		return
	}
	if err := j.ctx.Err(); err != nil {
		j.handle.complete(false, err, false)
		p.observe()
		return
	}

	p.active.Add(1)
	p.observe()

	value, err := execute(j.ctx, j.task)
	if !j.handle.complete(value, err, false) {
		p.logger.Debug("discarding result of cancelled task", "worker", id)
	}

	p.active.Add(-1)
	p.observe()
}

// Stats returns the current queue depth and number of busy workers.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Name:    p.name,
		Workers: p.workers,
		Queued:  len(p.queue),
		Active:  int(p.active.Load()),
	}
}

func (p *Pool) observe() {
	if p.observer != nil {
		p.observer.ObservePool(p.Stats())
	}
}

// Close stops accepting tasks, lets the workers drain the queue and waits
// for them to exit. Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("pool stopped")
	return nil
}
