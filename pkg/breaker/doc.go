// Package breaker provides a framework-agnostic circuit breaker with
// pluggable state storage.
//
// A CircuitBreaker is a stateful gate placed in front of calls to a
// potentially-failing dependency. Once consecutive failures cross a
// threshold the circuit opens and calls fail fast without touching the
// dependency; after a reset timeout a single trial call probes for
// recovery.
//
// State lives in a Storage backend. The in-memory backend serves a single
// process; the redis backend lets many processes share one canonical
// breaker state, converging through lazy reconciliation rather than a
// central coordinator.
//
// Example usage:
//
//	cb := breaker.New(breaker.Config{
//	    Name:         "payments",
//	    FailMax:      3,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	err := cb.Call(ctx, func(ctx context.Context) error {
//	    return client.Charge(ctx, order)
//	})
//	if errors.Is(err, breaker.ErrOpen) {
//	    // dependency is tripped; fail fast
//	}
package breaker
