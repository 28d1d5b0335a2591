package breaker

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Listener receives notifications about circuit breaker activity.
//
// Listeners are invoked synchronously, in registration order, while the
// breaker holds its internal lock; implementations must not call back
// into the breaker and should return quickly.
//
// Embed BaseListener to implement only the hooks you care about.
type Listener interface {
	// BeforeCall is called before the breaker attempts the guarded
	// operation. It does not fire for calls short-circuited while the
	// circuit is open.
	BeforeCall(ctx context.Context, cb *CircuitBreaker)

	// Success is called when a guarded operation succeeds. Excluded
	// (business) errors count as successes for breaker health.
	Success(ctx context.Context, cb *CircuitBreaker)

	// Failure is called when a guarded operation fails with a
	// qualifying error.
	Failure(ctx context.Context, cb *CircuitBreaker, err error)

	// StateChange is called exactly once per transition with the old
	// and new states.
	StateChange(ctx context.Context, cb *CircuitBreaker, from, to State)
}

// BaseListener is a no-op Listener. Embed it to get default
// implementations for every hook.
type BaseListener struct{}

// BeforeCall is a no-op implementation.
func (BaseListener) BeforeCall(ctx context.Context, cb *CircuitBreaker) {}

// Success is a no-op implementation.
func (BaseListener) Success(ctx context.Context, cb *CircuitBreaker) {}

// Failure is a no-op implementation.
func (BaseListener) Failure(ctx context.Context, cb *CircuitBreaker, err error) {}

// StateChange is a no-op implementation.
func (BaseListener) StateChange(ctx context.Context, cb *CircuitBreaker, from, to State) {}

// LoggingListener logs breaker activity with slog.
//
// State changes are logged at WARN level; individual failures at DEBUG.
type LoggingListener struct {
	BaseListener

	logger *slog.Logger
}

// NewLoggingListener creates a LoggingListener. A nil logger falls back
// to slog.Default().
func NewLoggingListener(logger *slog.Logger) *LoggingListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingListener{logger: logger}
}

// Failure logs the qualifying failure at DEBUG level.
func (l *LoggingListener) Failure(ctx context.Context, cb *CircuitBreaker, err error) {
	l.logger.DebugContext(ctx, "circuit breaker call failed",
		slog.String("circuit", cb.Name()),
		slog.String("error", err.Error()))
}

// StateChange logs the transition at WARN level.
func (l *LoggingListener) StateChange(ctx context.Context, cb *CircuitBreaker, from, to State) {
	l.logger.WarnContext(ctx, "circuit breaker state changed",
		slog.String("circuit", cb.Name()),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

// TracingListener records breaker activity as events on the active
// OpenTelemetry span found in the call context. If the context carries no
// recording span, the hooks are no-ops.
type TracingListener struct {
	BaseListener
}

// NewTracingListener creates a TracingListener.
func NewTracingListener() *TracingListener {
	return &TracingListener{}
}

// Failure records a span event for the qualifying failure.
func (l *TracingListener) Failure(ctx context.Context, cb *CircuitBreaker, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("circuit_breaker.failure", trace.WithAttributes(
		attribute.String("circuit_breaker.name", cb.Name()),
		attribute.String("error", err.Error()),
	))
}

// StateChange records a span event for the transition.
func (l *TracingListener) StateChange(ctx context.Context, cb *CircuitBreaker, from, to State) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("circuit_breaker.state_change", trace.WithAttributes(
		attribute.String("circuit_breaker.name", cb.Name()),
		attribute.String("circuit_breaker.from", from.String()),
		attribute.String("circuit_breaker.to", to.String()),
	))
}
