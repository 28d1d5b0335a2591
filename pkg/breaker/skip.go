package breaker

import "context"

// skipContextKey is the context key for the per-call bypass flag.
type skipContextKey struct{}

// WithSkip returns a context that makes Call bypass the breaker for this
// call: the operation runs directly, with no gating, counting or
// listener notification.
//
// Use it for requests that must reach the dependency even while the
// circuit is open, e.g. health checks driven by an operator.
func WithSkip(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipContextKey{}, true)
}

// Skipped reports whether ctx carries the bypass flag set by WithSkip.
func Skipped(ctx context.Context) bool {
	skip, ok := ctx.Value(skipContextKey{}).(bool)
	return ok && skip
}
