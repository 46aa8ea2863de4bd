package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"mercator-hq/conditional/pkg/condition"
)

// Status values.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds each readiness check.
const DefaultCheckTimeout = 5 * time.Second

// CheckFunc is a function that performs a health check for a component.
// It returns nil if the component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message describes the failure of an unhealthy check.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// HealthStatus represents the overall health status of the system.
type HealthStatus struct {
	// Status is "ok" for liveness, "ready" or "degraded" for readiness.
	Status string `json:"status"`

	// Checks contains the status of individual components (for readiness)
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the health check was performed
	Timestamp time.Time `json:"timestamp"`
}

// ErrCheckTimeout is the failure reported for a check exceeding its timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// Checker manages health checks for system components.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	checkTimeout time.Duration
	now          func() time.Time
}

// New creates a checker. A zero timeout uses DefaultCheckTimeout.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
		now:          time.Now,
	}
}

// RegisterCheck registers a check, replacing one with the same name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// ListChecks returns the registered check names, sorted.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: c.now()}
}

// CheckReadiness runs every registered check concurrently and aggregates
// the results.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	status := HealthStatus{Status: StatusReady, Checks: make(map[string]CheckResult, len(checks))}
	if len(checks) == 0 {
		status.Timestamp = c.now()
		return status
	}

	rc := condition.NewRunContext()
	errs := make(map[string]error, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		leaf := condition.Of(func(ctx context.Context, _ *condition.RunContext) (bool, error) {
			return true, check(ctx)
		}, condition.WithAlias(name), condition.WithTimeout(c.checkTimeout))

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := condition.Evaluate(ctx, leaf, rc)
			mu.Lock()
			errs[name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()

	durations := make(map[string]time.Duration, len(checks))
	for _, entry := range rc.Completions() {
		durations[entry.Alias] = entry.Duration
	}

	for name := range checks {
		result := CheckResult{Status: StatusOK, Duration: durations[name]}
		if err := errs[name]; err != nil {
			result.Status = StatusUnhealthy
			result.Message = message(err)
			status.Status = StatusDegraded
		}
		status.Checks[name] = result
	}
	status.Timestamp = c.now()
	return status
}

// message strips the evaluation wrapper from a check failure.
func message(err error) string {
	if condition.IsTimeout(err) {
		return ErrCheckTimeout.Error()
	}
	var evalErr *condition.EvaluationError
	if errors.As(err, &evalErr) && evalErr.Cause != nil {
		return evalErr.Cause.Error()
	}
	return err.Error()
}
