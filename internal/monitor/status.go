package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grimm.is/qdiscwatch/internal/health"
	"grimm.is/qdiscwatch/internal/qdisc"
)

// unhealthySampleErrors is the number of consecutive failed samples after
// which the qdisc check reports unhealthy rather than degraded.
const unhealthySampleErrors = 3

// Status is a point-in-time snapshot of the loop for health reporting.
type Status struct {
	State           State
	LastSample      qdisc.Sample
	LastSampleError string
	SampleErrors    int // consecutive
	ConsecutiveHigh uint
	Flaps           int
	LastFlap        time.Time
	UpFailing       bool
}

type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func (t *statusTracker) update(fn func(s *Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}

func (t *statusTracker) get() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Status returns a snapshot of the loop. Safe for concurrent use.
func (m *Monitor) Status() Status {
	return m.status.get()
}

// RegisterHealthChecks adds the "qdisc" and "link" checks to c.
func (m *Monitor) RegisterHealthChecks(c *health.Checker) {
	c.Register("qdisc", m.checkQdisc)
	c.Register("link", m.checkLink)
}

func (m *Monitor) checkQdisc(ctx context.Context) health.Check {
	s := m.Status()
	check := health.Check{LastChecked: m.clock.Now(), Status: health.StatusHealthy}

	switch {
	case s.SampleErrors >= unhealthySampleErrors:
		check.Status = health.StatusUnhealthy
		check.Message = fmt.Sprintf("%d consecutive sample failures: %s", s.SampleErrors, s.LastSampleError)
	case s.SampleErrors > 0:
		check.Status = health.StatusDegraded
		check.Message = fmt.Sprintf("last sample failed: %s", s.LastSampleError)
	case s.LastSample.Time.IsZero():
		check.Message = "no sample yet"
	default:
		check.Message = fmt.Sprintf("%s qlen=%d consecutive_high=%d/%d",
			s.LastSample.Kind, s.LastSample.Qlen, s.ConsecutiveHigh, m.detector.Required())
	}
	return check
}

func (m *Monitor) checkLink(ctx context.Context) health.Check {
	s := m.Status()
	check := health.Check{LastChecked: m.clock.Now(), Status: health.StatusHealthy}

	switch {
	case s.State == StateFlapping && s.UpFailing:
		check.Status = health.StatusUnhealthy
		check.Message = "interface is down and bring-up is failing"
	case s.State == StateFlapping:
		check.Status = health.StatusDegraded
		check.Message = "flap in progress"
	case s.State == StateCooldownBlocked:
		check.Status = health.StatusDegraded
		check.Message = "sustained congestion, flap blocked by cooldown"
	case s.Flaps > 0:
		check.Message = fmt.Sprintf("%d flaps, last at %s", s.Flaps, s.LastFlap.Format(time.RFC3339))
	default:
		check.Message = "no flaps"
	}
	return check
}
