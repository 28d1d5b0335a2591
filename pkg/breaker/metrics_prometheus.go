package breaker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
//
// All metrics use a custom registry for better testability and isolation;
// pass Registry() to promhttp.HandlerFor to expose them.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// callsTotal tracks call attempts by breaker and outcome.
	// Labels:
	//   - circuit: breaker name
	//   - outcome: "success", "failure", "excluded" or "rejected"
	callsTotal *prometheus.CounterVec

	// callDuration tracks the duration of executed guarded calls.
	// Labels:
	//   - circuit: breaker name
	callDuration *prometheus.HistogramVec

	// state tracks the current circuit state.
	// Labels:
	//   - circuit: breaker name
	//
	// Values:
	//   - 0: closed
	//   - 1: open
	//   - 2: half-open
	state *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with a
// custom registry.
//
// Using a custom registry (instead of the global
// prometheus.DefaultRegisterer) provides isolated metrics per instance
// and no conflicts when several breakers with metrics run in one
// process.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_calls_total",
			Help: "Total circuit breaker call attempts by breaker and outcome",
		},
		[]string{"circuit", "outcome"},
	)

	callDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circuit_breaker_call_duration_seconds",
			Help:    "Duration of executed guarded calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"circuit"},
	)

	state := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)

	registry.MustRegister(callsTotal, callDuration, state)

	return &PrometheusMetrics{
		registry:     registry,
		callsTotal:   callsTotal,
		callDuration: callDuration,
		state:        state,
	}
}

// Registry returns the custom Prometheus registry holding the breaker
// metrics.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCall records one call attempt and its outcome.
func (m *PrometheusMetrics) RecordCall(name, outcome string) {
	m.callsTotal.WithLabelValues(name, outcome).Inc()
}

// RecordCallDuration records the duration of an executed call.
func (m *PrometheusMetrics) RecordCallDuration(name string, d time.Duration) {
	m.callDuration.WithLabelValues(name).Observe(d.Seconds())
}

// RecordState records the current circuit state.
func (m *PrometheusMetrics) RecordState(name string, state State) {
	m.state.WithLabelValues(name).Set(float64(state))
}
