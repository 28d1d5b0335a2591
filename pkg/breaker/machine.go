package breaker

import (
	"context"
	"errors"
)

// errReGate signals that the gate transitioned the breaker and the call
// must be re-evaluated against the new state object.
var errReGate = errors.New("re-evaluate gate")

// stateObject encapsulates the per-state call-gating and
// transition-trigger behavior of one circuit state. Exactly one object is
// cached per breaker at a time; it is rebuilt whenever the canonical
// storage state diverges from it.
//
// All methods run with the breaker's lock held.
type stateObject interface {
	// state identifies the circuit state this object implements.
	state() State

	// gate decides whether a call may proceed. It returns nil to admit
	// the call, an *OpenError to reject it, or errReGate after
	// triggering a transition that the call must be re-gated against.
	gate(ctx context.Context, cb *CircuitBreaker) error

	// onSuccess handles a successful (or excluded-error) guarded call.
	onSuccess(ctx context.Context, cb *CircuitBreaker)

	// onFailure handles a qualifying failure of a guarded call and
	// returns the error to surface to the caller.
	onFailure(ctx context.Context, cb *CircuitBreaker, err error) error
}

// closedState executes calls as usual and counts qualifying failures.
// Crossing the failure threshold trips the circuit.
type closedState struct{}

func (c *closedState) state() State { return StateClosed }

func (c *closedState) gate(ctx context.Context, cb *CircuitBreaker) error {
	return nil
}

func (c *closedState) onSuccess(ctx context.Context, cb *CircuitBreaker) {}

func (c *closedState) onFailure(ctx context.Context, cb *CircuitBreaker, err error) error {
	if cb.storage.Counter(ctx) >= cb.failMax {
		cb.transitionLocked(ctx, StateOpen)
		return &OpenError{
			Breaker: cb.name,
			Reason:  "failure threshold reached",
			Cause:   err,
		}
	}
	return err
}

// openState rejects every call without touching the guarded operation
// until the reset timeout elapses, then hands the triggering call to the
// half-open state as its trial.
type openState struct{}

func (o *openState) state() State { return StateOpen }

func (o *openState) gate(ctx context.Context, cb *CircuitBreaker) error {
	openedAt, ok := cb.storage.OpenedAt(ctx)
	if ok && cb.clock.Now().Before(openedAt.Add(cb.resetTimeout)) {
		return &OpenError{Breaker: cb.name, Reason: "reset timeout not elapsed"}
	}
	// A missing opened-at timestamp counts as elapsed: without it there
	// is no window to wait out.
	cb.transitionLocked(ctx, StateHalfOpen)
	return errReGate
}

func (o *openState) onSuccess(ctx context.Context, cb *CircuitBreaker) {}

func (o *openState) onFailure(ctx context.Context, cb *CircuitBreaker, err error) error {
	return err
}

// halfOpenState admits exactly one trial call. The trial's outcome
// decides the exit transition: success closes the circuit, a qualifying
// failure reopens it with a fresh opened-at timestamp.
type halfOpenState struct {
	// trialInFlight latches once a trial has been admitted; further
	// calls are rejected until the trial settles (which replaces this
	// object through its exit transition).
	trialInFlight bool
}

func (h *halfOpenState) state() State { return StateHalfOpen }

func (h *halfOpenState) gate(ctx context.Context, cb *CircuitBreaker) error {
	if h.trialInFlight {
		return &OpenError{Breaker: cb.name, Reason: "trial call already in flight"}
	}
	h.trialInFlight = true
	return nil
}

func (h *halfOpenState) onSuccess(ctx context.Context, cb *CircuitBreaker) {
	cb.transitionLocked(ctx, StateClosed)
}

func (h *halfOpenState) onFailure(ctx context.Context, cb *CircuitBreaker, err error) error {
	cb.transitionLocked(ctx, StateOpen)
	return &OpenError{
		Breaker: cb.name,
		Reason:  "trial call failed",
		Cause:   err,
	}
}
