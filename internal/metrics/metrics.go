// Package metrics records dispatch and decision counters for a hookrelay
// process. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

const namespace = "hookrelay"

// Metrics holds the collectors registered for one pipeline.
type Metrics struct {
	registry *prometheus.Registry

	attemptsTotal  *prometheus.CounterVec
	failoversTotal prometheus.Counter
	exhaustedTotal prometheus.Counter
	decisionsTotal *prometheus.CounterVec
	dispatchTime   prometheus.Histogram
}

// New creates a Metrics backed by a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Total number of requests sent to policy servers, by outcome class.",
		}, []string{"class"}),
		failoversTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_failovers_total",
			Help:      "Total number of times dispatch moved on to the next endpoint.",
		}),
		exhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_exhausted_total",
			Help:      "Total number of dispatches where every endpoint failed.",
		}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of resolved decisions, by exit code and source.",
		}, []string{"exit_code", "source"}),
		dispatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time spent dispatching one event across all endpoints.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		m.attemptsTotal,
		m.failoversTotal,
		m.exhaustedTotal,
		m.decisionsTotal,
		m.dispatchTime,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Attempt counts one request. ClassNone is recorded as "success".
func (m *Metrics) Attempt(class domain.FailureClass) {
	if m == nil {
		return
	}
	label := class.String()
	if class == domain.ClassNone {
		label = "success"
	}
	m.attemptsTotal.WithLabelValues(label).Inc()
}

// Failover counts a move to the next endpoint.
func (m *Metrics) Failover() {
	if m == nil {
		return
	}
	m.failoversTotal.Inc()
}

// Exhausted counts a dispatch that ran out of endpoints.
func (m *Metrics) Exhausted() {
	if m == nil {
		return
	}
	m.exhaustedTotal.Inc()
}

// Decision counts a resolved decision.
func (m *Metrics) Decision(d domain.Decision) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(strconv.Itoa(int(d.ExitCode)), string(d.Source)).Inc()
}

// ObserveDispatch records how long a dispatch took.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTime.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
