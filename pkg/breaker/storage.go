package breaker

import (
	"context"
	"time"
)

// Storage holds the canonical state of one circuit breaker: the current
// State, the consecutive failure counter, and the timestamp of the most
// recent open transition.
//
// Implementations must be thread-safe. Shared implementations (redis)
// additionally let separate processes observe one canonical breaker
// state.
//
// Backend failures never escape this abstraction: reads fall back to a
// statically configured default, writes are logged and dropped. This
// containment is part of the contract: a broken storage backend must
// degrade the breaker, never the guarded call.
//
// The context-aware methods are the surface both blocking and suspending
// callers share; the breaker performs no storage access outside of them.
type Storage interface {
	// Name returns a human friendly name identifying the backend,
	// e.g. "memory" or "redis".
	Name() string

	// State returns the canonical circuit state, or the backend's
	// fallback state when the backend is unreachable.
	State(ctx context.Context) State

	// SetState sets the canonical circuit state. Best effort.
	SetState(ctx context.Context, state State)

	// Counter returns the current consecutive failure count, or zero
	// when the backend is unreachable.
	Counter(ctx context.Context) int

	// IncrementCounter increases the failure counter by one. For shared
	// backends this must be a single atomic operation, not a
	// read-modify-write.
	IncrementCounter(ctx context.Context)

	// ResetCounter sets the failure counter to zero. Best effort.
	ResetCounter(ctx context.Context)

	// OpenedAt returns the timestamp of the most recent open
	// transition. ok is false when no open transition has been
	// recorded or the backend is unreachable.
	OpenedAt(ctx context.Context) (t time.Time, ok bool)

	// SetOpenedAt records an open transition at t. Implementations
	// write only if t is newer than the stored value, so a
	// late-arriving open transition from one writer can never regress
	// a timestamp set by a concurrent, more recent one.
	SetOpenedAt(ctx context.Context, t time.Time)
}
