// Package health aggregates component checks into one report and serves it
// on the liveness, readiness and health endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"grimm.is/qdiscwatch/internal/clock"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Check is the outcome of one check function.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ns"`
}

// Report is the aggregate of every registered check.
type Report struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) Check

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Checker runs registered checks in registration order and caches the
// resulting report for a short TTL so probes stay cheap.
type Checker struct {
	mu     sync.Mutex
	clock  clock.Clock
	ttl    time.Duration
	checks []namedCheck
	cached *Report
}

// NewChecker creates a health checker with no checks registered.
// A zero ttl disables caching.
func NewChecker(ttl time.Duration) *Checker {
	return &Checker{clock: &clock.RealClock{}, ttl: ttl}
}

// SetClock replaces the time source used for timestamps and the cache TTL.
func (c *Checker) SetClock(clk clock.Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clk
}

// Register adds a check. Registering a name twice replaces the first one.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].fn = fn
			c.cached = nil
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, fn: fn})
	c.cached = nil
}

// Check returns the current report, running the checks if the cached one
// has expired.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.cached != nil && now.Sub(c.cached.Timestamp) < c.ttl {
		return *c.cached
	}

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(c.checks)),
		Timestamp: now,
	}
	for _, nc := range c.checks {
		start := c.clock.Now()
		chk := nc.fn(ctx)
		chk.Name = nc.name
		chk.Duration = c.clock.Since(start)
		if chk.LastChecked.IsZero() {
			chk.LastChecked = start
		}
		report.Checks[nc.name] = chk
		report.Status = Worst(report.Status, chk.Status)
	}

	c.cached = &report
	return report
}

func (c *Checker) probe(r *http.Request, timeout time.Duration) Report {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	return c.Check(ctx)
}

// Handler serves the full JSON report. Degraded still answers 200.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.probe(r, 10*time.Second)

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(report)
	}
}

// ReadinessHandler answers READY unless some check is unhealthy.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.probe(r, 5*time.Second).Status == StatusUnhealthy {
			http.Error(w, "NOT READY", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("READY"))
	}
}

// LivenessHandler always answers OK while the process can serve HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}
}
