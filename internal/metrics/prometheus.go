package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qdiscwatch"

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all watchdog metrics.
type Registry struct {
	reg *prometheus.Registry

	// Queue metrics
	BacklogPackets  *prometheus.GaugeVec
	BacklogBytes    *prometheus.GaugeVec
	QdiscDrops      *prometheus.GaugeVec
	ConsecutiveHigh *prometheus.GaugeVec
	SampleErrors    *prometheus.CounterVec

	// Recovery metrics
	Flaps        *prometheus.CounterVec
	FlapsBlocked *prometheus.CounterVec
	ToggleErrors *prometheus.CounterVec
	LastFlap     *prometheus.GaugeVec
	MonitorState *prometheus.GaugeVec
}

// Get returns the process-wide registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = New()
	})
	return registry
}

// New creates a registry with its own Prometheus registerer, plus the Go
// runtime and process collectors. Tests use it to get isolated counters.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	r := &Registry{reg: reg}

	r.BacklogPackets = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backlog_packets",
		Help:      "Root qdisc queue length at the last successful sample",
	}, []string{"interface"})

	r.BacklogBytes = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backlog_bytes",
		Help:      "Root qdisc backlog in bytes at the last successful sample",
	}, []string{"interface"})

	r.QdiscDrops = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "qdisc_drops",
		Help:      "Kernel drop counter of the root qdisc at the last sample",
	}, []string{"interface"})

	r.ConsecutiveHigh = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "consecutive_high",
		Help:      "Current run of samples above the high watermark",
	}, []string{"interface"})

	r.SampleErrors = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sample_errors_total",
		Help:      "Poll cycles skipped because the qdisc could not be read",
	}, []string{"interface"})

	r.Flaps = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flaps_total",
		Help:      "Interface flaps performed",
	}, []string{"interface"})

	r.FlapsBlocked = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flaps_blocked_total",
		Help:      "Sustained congestion events suppressed by the flap cooldown",
	}, []string{"interface"})

	r.ToggleErrors = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "link_toggle_errors_total",
		Help:      "Failed attempts to change the interface admin state",
	}, []string{"interface", "state"})

	r.LastFlap = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_flap_timestamp_seconds",
		Help:      "Unix timestamp of the last completed flap",
	}, []string{"interface"})

	r.MonitorState = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "monitor_state",
		Help:      "1 for the monitor's current state, 0 otherwise",
	}, []string{"interface", "state"})

	return r
}

// RecordSample updates the queue gauges from one reading.
func (r *Registry) RecordSample(iface string, qlen, backlogBytes, drops uint32) {
	r.BacklogPackets.WithLabelValues(iface).Set(float64(qlen))
	r.BacklogBytes.WithLabelValues(iface).Set(float64(backlogBytes))
	r.QdiscDrops.WithLabelValues(iface).Set(float64(drops))
}

// SetState marks current as the active state among all.
func (r *Registry) SetState(iface, current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		r.MonitorState.WithLabelValues(iface, s).Set(v)
	}
}

// Handler returns the /metrics HTTP handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
