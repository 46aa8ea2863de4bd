package limits

import (
	"sync"
	"time"

	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/limits/ratelimit"
)

// Manager keeps one limiter per client.
type Manager struct {
	config ratelimit.Config
	idle   time.Duration
	now    func() time.Time

	mu        sync.Mutex
	limiters  map[string]*ratelimit.Limiter
	lastPrune time.Time
}

// NewManager creates a manager applying cfg to every client.
func NewManager(cfg *config.LimitsConfig) *Manager {
	return &Manager{
		config: ratelimit.Config{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			MaxConcurrent:     cfg.MaxConcurrent,
		},
		idle:      cfg.IdleTimeout,
		now:       time.Now,
		limiters:  make(map[string]*ratelimit.Limiter),
		lastPrune: time.Now(),
	}
}

// Acquire admits one request for client. See ratelimit.Limiter.Acquire.
func (m *Manager) Acquire(client string) (func(), ratelimit.CheckResult) {
	m.mu.Lock()
	if m.idle > 0 && m.now().Sub(m.lastPrune) >= m.idle {
		m.pruneLocked()
	}
	l, ok := m.limiters[client]
	if !ok {
		l = ratelimit.NewLimiter(m.config)
		m.limiters[client] = l
	}
	m.mu.Unlock()

	return l.Acquire()
}

// Prune drops limiters idle for longer than the idle timeout with nothing
// in flight, and returns how many were dropped.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked()
}

func (m *Manager) pruneLocked() int {
	now := m.now()
	m.lastPrune = now
	if m.idle <= 0 {
		return 0
	}

	dropped := 0
	for client, l := range m.limiters {
		if l.InFlight() == 0 && now.Sub(l.LastUsed()) >= m.idle {
			delete(m.limiters, client)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked clients.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}
