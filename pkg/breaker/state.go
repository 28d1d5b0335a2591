package breaker

import "fmt"

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls execute normally.
	// Qualifying failures are counted; crossing FailMax opens the circuit.
	StateClosed State = iota

	// StateOpen indicates the circuit is tripped. Calls fail fast with
	// ErrOpen and the protected operation is never invoked, until the
	// reset timeout elapses.
	StateOpen

	// StateHalfOpen indicates the circuit is probing for recovery.
	// Exactly one trial call is allowed through to decide the next
	// transition.
	StateHalfOpen
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ParseState converts a stored state name back into a State.
//
// This is the inverse of String and is used by storage backends, which
// persist states by name so that independent processes (and humans
// inspecting the backend) agree on the encoding.
func ParseState(name string) (State, error) {
	switch name {
	case "closed":
		return StateClosed, nil
	case "open":
		return StateOpen, nil
	case "half-open":
		return StateHalfOpen, nil
	default:
		return StateClosed, fmt.Errorf("unknown circuit state %q", name)
	}
}
