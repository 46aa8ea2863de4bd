package ratelimit

import (
	"sync"
	"time"
)

// Limit names which limit rejected a request.
type Limit string

const (
	LimitRate        Limit = "rate"
	LimitConcurrency Limit = "concurrency"
)

// Config sets the limits of one client. Zero values disable a limit.
type Config struct {
	// RequestsPerSecond is the average request rate.
	RequestsPerSecond float64

	// Burst is the bucket capacity. Zero means twice the rate, at least 1.
	Burst int

	// MaxConcurrent caps simultaneous requests.
	MaxConcurrent int
}

// CheckResult describes the outcome of Acquire.
type CheckResult struct {
	Allowed bool

	// Limit and Reason are set when the request was rejected.
	Limit  Limit
	Reason string

	// Capacity and Remaining describe the rate bucket, or are zero when no
	// rate limit applies.
	Capacity  int64
	Remaining int64

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration
}

// Limiter applies the rate and concurrency limits of one client.
type Limiter struct {
	bucket     *TokenBucket
	concurrent *ConcurrentLimiter
	now        func() time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

// NewLimiter creates a limiter from cfg.
func NewLimiter(cfg Config) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	l := &Limiter{now: now, lastUsed: now()}
	if cfg.RequestsPerSecond > 0 {
		burst := int64(cfg.Burst)
		if burst <= 0 {
			burst = int64(cfg.RequestsPerSecond * 2)
		}
		if burst < 1 {
			burst = 1
		}
		l.bucket = newTokenBucket(burst, cfg.RequestsPerSecond, now)
	}
	if cfg.MaxConcurrent > 0 {
		l.concurrent = NewConcurrentLimiter(cfg.MaxConcurrent)
	}
	return l
}

// Acquire admits one request. When the result is allowed, release must be
// called once the request finishes; otherwise release is a no-op.
func (l *Limiter) Acquire() (release func(), result CheckResult) {
	l.mu.Lock()
	l.lastUsed = l.now()
	l.mu.Unlock()

	release = func() {}
	if l.concurrent != nil {
		if !l.concurrent.Acquire() {
			return release, CheckResult{
				Limit:      LimitConcurrency,
				Reason:     "too many concurrent requests",
				RetryAfter: time.Second,
			}
		}
		var once sync.Once
		release = func() { once.Do(l.concurrent.Release) }
	}

	if l.bucket != nil {
		if !l.bucket.Take(1) {
			release()
			return func() {}, CheckResult{
				Limit:      LimitRate,
				Reason:     "request rate limit exceeded",
				Capacity:   l.bucket.Capacity(),
				Remaining:  0,
				RetryAfter: l.bucket.TimeUntilAvailable(1),
			}
		}
		return release, CheckResult{
			Allowed:   true,
			Capacity:  l.bucket.Capacity(),
			Remaining: l.bucket.Remaining(),
		}
	}
	return release, CheckResult{Allowed: true}
}

// InFlight returns the requests currently holding a concurrency slot.
func (l *Limiter) InFlight() int64 {
	if l.concurrent == nil {
		return 0
	}
	return l.concurrent.Current()
}

// LastUsed returns the time of the last Acquire.
func (l *Limiter) LastUsed() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUsed
}
