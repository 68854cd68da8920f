// Package report tracks worker lifecycle metrics for Prometheus.
package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/runproc/pkg/proto"
)

// Metrics aggregates counters for spawned workers and their outcomes.
type Metrics struct {
	workersStarted   prometheus.Counter
	workersFinished  *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// Outcome labels for the finished counter.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeTerminated = "terminated"
	OutcomeProtocol   = "protocol_error"
)

// NewMetrics creates and registers the worker metrics on reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics
// endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		workersStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runproc_workers_started_total",
				Help: "Total worker processes spawned",
			},
		),
		workersFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runproc_workers_finished_total",
				Help: "Total worker processes finished, by outcome",
			},
			[]string{"outcome"},
		),
		stateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runproc_state_transitions_total",
				Help: "Lifecycle state transitions observed from workers",
			},
			[]string{"state"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runproc_run_duration_seconds",
				Help:    "Wall time from spawn to resolved outcome",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
	}

	reg.MustRegister(m.workersStarted)
	reg.MustRegister(m.workersFinished)
	reg.MustRegister(m.stateTransitions)
	reg.MustRegister(m.runDuration)

	// Pre-create outcome series so every label value always exists.
	for _, outcome := range []string{OutcomeSuccess, OutcomeFailure, OutcomeTerminated, OutcomeProtocol} {
		m.workersFinished.WithLabelValues(outcome)
	}

	return m
}

// WorkerStarted records a spawned worker process.
func (m *Metrics) WorkerStarted() {
	m.workersStarted.Inc()
}

// WorkerFinished records a resolved run and its duration in seconds.
func (m *Metrics) WorkerFinished(outcome string, seconds float64) {
	m.workersFinished.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(seconds)
}

// StateObserved records a lifecycle state reported by a worker.
func (m *Metrics) StateObserved(s proto.State) {
	m.stateTransitions.WithLabelValues(s.String()).Inc()
}
