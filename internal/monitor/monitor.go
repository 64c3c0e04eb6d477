// Package monitor runs the watchdog loop: sample the root qdisc backlog on a
// fixed interval, detect sustained congestion, and flap the interface when
// the cooldown allows it.
//
// The loop is strictly sequential. Samples are spaced by at least the poll
// interval, and a flap (down, up until success, bookkeeping) always
// completes before the next sample is taken.
package monitor

import (
	"context"
	"time"

	"grimm.is/qdiscwatch/internal/clock"
	"grimm.is/qdiscwatch/internal/detector"
	"grimm.is/qdiscwatch/internal/link"
	"grimm.is/qdiscwatch/internal/logging"
	"grimm.is/qdiscwatch/internal/metrics"
	"grimm.is/qdiscwatch/internal/qdisc"

	"github.com/google/uuid"
)

// Sampler returns the current root qdisc statistics.
type Sampler interface {
	Sample() (qdisc.Sample, error)
}

// Controller changes the interface's administrative state.
type Controller interface {
	SetAdminState(up bool) error
}

// Config holds the loop's thresholds and timings.
type Config struct {
	Interface      string
	HighWatermark  uint64
	RequiredCount  uint
	PollInterval   time.Duration
	InitialDelay   time.Duration
	BounceInterval time.Duration
	UpRetryBackoff time.Duration
}

// Monitor is the watchdog loop. It is not safe for concurrent use, except
// for Status, which may be called from any goroutine.
type Monitor struct {
	cfg      Config
	sampler  Sampler
	ctrl     Controller
	detector *detector.Detector
	clock    clock.Clock
	logger   *logging.Logger
	metrics  *metrics.Registry

	state      State
	lastBounce time.Time
	bounced    bool

	status statusTracker
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the real clock (tests use clock.MockClock).
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(m *Monitor) { m.metrics = r }
}

// New creates a monitor.
func New(cfg Config, sampler Sampler, ctrl Controller, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		sampler:  sampler,
		ctrl:     ctrl,
		detector: detector.New(cfg.RequiredCount),
		clock:    &clock.RealClock{},
		state:    StateStartup,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Default()
	}
	if m.metrics == nil {
		m.metrics = metrics.Get()
	}
	m.logger = m.logger.WithComponent("monitor")
	return m
}

// Run performs the startup sample, waits out the initial quiescence delay
// and then polls forever. ctx is only consulted between cycles, so a flap
// in progress is never interrupted; production callers pass
// context.Background() and the loop never returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.setState(StateStartup)
	m.logger.Info("Starting queue monitor",
		"interface", m.cfg.Interface,
		"high_watermark", m.cfg.HighWatermark,
		"required_count", m.detector.Required(),
		"poll_interval", m.cfg.PollInterval,
		"initial_delay", m.cfg.InitialDelay,
		"bounce_interval", m.cfg.BounceInterval)

	// Observability only: the startup sample is not fed to the detector.
	if sample, err := m.sample(); err == nil {
		m.report(sample)
	}

	m.logger.Info("Waiting before enabling recovery", "delay", m.cfg.InitialDelay)
	m.clock.Sleep(m.cfg.InitialDelay)
	if err := ctx.Err(); err != nil {
		return err
	}

	m.setState(StateWaiting)
	for {
		m.Step()
		m.clock.Sleep(m.cfg.PollInterval)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// DryRun takes exactly one sample, reports it and returns. It never touches
// the controller.
func (m *Monitor) DryRun() (qdisc.Sample, error) {
	sample, err := m.sample()
	if err != nil {
		return qdisc.Sample{}, err
	}
	m.report(sample)
	m.logger.Info("Dry run sample",
		"interface", sample.Interface,
		"qdisc", sample.Kind,
		"handle", sample.Handle,
		"qlen", sample.Qlen,
		"high_watermark", m.cfg.HighWatermark,
		"high", uint64(sample.Qlen) > m.cfg.HighWatermark)
	return sample, nil
}

// Step runs one poll cycle: sample, feed the detector, and flap if
// congestion is sustained and the cooldown has elapsed. A failed sample
// skips the cycle without touching the detector.
func (m *Monitor) Step() {
	if m.state != StateWaiting {
		m.setState(StateWaiting)
	}

	sample, err := m.sample()
	if err != nil {
		return
	}
	m.report(sample)

	sustained := m.detector.Observe(uint64(sample.Qlen), m.cfg.HighWatermark)
	m.metrics.ConsecutiveHigh.WithLabelValues(m.cfg.Interface).Set(float64(m.detector.Count()))
	m.status.update(func(s *Status) { s.ConsecutiveHigh = m.detector.Count() })
	if !sustained {
		return
	}

	if m.bounced {
		if elapsed := m.clock.Since(m.lastBounce); elapsed < m.cfg.BounceInterval {
			m.setState(StateCooldownBlocked)
			m.metrics.FlapsBlocked.WithLabelValues(m.cfg.Interface).Inc()
			m.logger.Warn("Sustained congestion, flap blocked by cooldown",
				"interface", m.cfg.Interface,
				"qlen", sample.Qlen,
				"consecutive", m.detector.Count(),
				"since_last_flap", elapsed.Round(time.Second),
				"cooldown_remaining", (m.cfg.BounceInterval - elapsed).Round(time.Second))
			return
		}
	}

	m.flap(sample)
}

// flap brings the interface down (best effort), then up until it succeeds,
// then records the cooldown timestamp and clears the detector.
func (m *Monitor) flap(trigger qdisc.Sample) {
	id := uuid.NewString()
	log := m.logger.WithFields(map[string]any{
		"flap_id":   id,
		"interface": m.cfg.Interface,
	})

	m.setState(StateFlapping)
	log.Warn("Sustained congestion, flapping interface",
		"qlen", trigger.Qlen,
		"backlog_bytes", trigger.Backlog,
		"consecutive", m.detector.Count(),
		"high_watermark", m.cfg.HighWatermark)

	log.Info("Bringing interface down")
	if err := m.ctrl.SetAdminState(false); err != nil {
		m.metrics.ToggleErrors.WithLabelValues(m.cfg.Interface, "down").Inc()
		log.Error("Failed to bring interface down, bringing it up anyway", "error", err)
	}

	attempts := link.Forever(m.clock, m.cfg.UpRetryBackoff, func(attempt int) error {
		log.Info("Bringing interface up", "attempt", attempt)
		return m.ctrl.SetAdminState(true)
	}, func(attempt int, err error) {
		m.metrics.ToggleErrors.WithLabelValues(m.cfg.Interface, "up").Inc()
		m.status.update(func(s *Status) { s.UpFailing = true })
		log.Error("Failed to bring interface up, retrying",
			"attempt", attempt,
			"backoff", m.cfg.UpRetryBackoff,
			"error", err)
	})

	now := m.clock.Now()
	m.lastBounce = now
	m.bounced = true
	m.detector.Reset()

	m.metrics.Flaps.WithLabelValues(m.cfg.Interface).Inc()
	m.metrics.LastFlap.WithLabelValues(m.cfg.Interface).Set(float64(now.Unix()))
	m.metrics.ConsecutiveHigh.WithLabelValues(m.cfg.Interface).Set(0)
	m.status.update(func(s *Status) {
		s.Flaps++
		s.LastFlap = now
		s.UpFailing = false
		s.ConsecutiveHigh = 0
	})

	log.Audit(now, "flap", "link:"+m.cfg.Interface, map[string]any{
		"up_attempts":  attempts,
		"trigger_qlen": trigger.Qlen,
	})
	log.Info("Flap complete", "up_attempts", attempts)
	m.setState(StateWaiting)
}

func (m *Monitor) sample() (qdisc.Sample, error) {
	sample, err := m.sampler.Sample()
	if err != nil {
		m.metrics.SampleErrors.WithLabelValues(m.cfg.Interface).Inc()
		m.status.update(func(s *Status) {
			s.SampleErrors++
			s.LastSampleError = err.Error()
		})
		m.logger.Warn("Failed to read queue length, skipping cycle",
			"interface", m.cfg.Interface,
			"error", err)
		return qdisc.Sample{}, err
	}
	m.status.update(func(s *Status) {
		s.SampleErrors = 0
		s.LastSampleError = ""
		s.LastSample = sample
	})
	return sample, nil
}

func (m *Monitor) report(s qdisc.Sample) {
	m.metrics.RecordSample(s.Interface, s.Qlen, s.Backlog, s.Drops)

	args := []any{
		"interface", s.Interface,
		"qdisc", s.Kind,
		"qlen", s.Qlen,
		"backlog_bytes", s.Backlog,
		"drops", s.Drops,
		"requeues", s.Requeues,
	}
	if s.Qlen == 0 {
		m.logger.Debug("Queue length", args...)
		return
	}
	m.logger.Info("Queue length", args...)
}

func (m *Monitor) setState(s State) {
	m.state = s
	m.metrics.SetState(m.cfg.Interface, string(s), stateNames())
	m.status.update(func(st *Status) { st.State = s })
}

// State returns the loop's current state.
func (m *Monitor) State() State {
	return m.state
}
