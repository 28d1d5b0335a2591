package breaker

import "time"

// Call outcome labels reported to Metrics implementations.
const (
	// OutcomeSuccess marks a guarded call that succeeded.
	OutcomeSuccess = "success"

	// OutcomeFailure marks a guarded call that failed with a
	// qualifying error.
	OutcomeFailure = "failure"

	// OutcomeExcluded marks a guarded call that failed with an
	// excluded (business) error, which counts as a success for breaker
	// health.
	OutcomeExcluded = "excluded"

	// OutcomeRejected marks a call short-circuited without invoking
	// the operation.
	OutcomeRejected = "rejected"
)

// Metrics defines the interface for recording circuit breaker metrics.
//
// Implementations can use Prometheus, StatsD, or custom metrics systems.
type Metrics interface {
	// RecordCall records one call attempt and its outcome, one of the
	// Outcome* constants.
	RecordCall(name, outcome string)

	// RecordCallDuration records the duration of an executed call.
	// Rejected calls are not timed.
	RecordCallDuration(name string, d time.Duration)

	// RecordState records the current circuit state after a
	// transition.
	RecordState(name string, state State)
}

// NoOpMetrics implements the Metrics interface with no-op
// implementations.
//
// This implementation is useful for testing, for disabling metrics
// collection, and for benchmarking breaker performance without metrics
// overhead.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new NoOpMetrics instance.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordCall is a no-op implementation.
func (m *NoOpMetrics) RecordCall(name, outcome string) {
	// No-op
}

// RecordCallDuration is a no-op implementation.
func (m *NoOpMetrics) RecordCallDuration(name string, d time.Duration) {
	// No-op
}

// RecordState is a no-op implementation.
func (m *NoOpMetrics) RecordState(name string, state State) {
	// No-op
}
