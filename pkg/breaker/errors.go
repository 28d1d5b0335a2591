package breaker

import (
	"errors"
	"fmt"
)

// ErrOpen is the sentinel error reported when a call is short-circuited
// because the circuit is open, or when the half-open trial call fails.
//
// Callers should match it with errors.Is:
//
//	if errors.Is(err, breaker.ErrOpen) { ... }
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is the concrete error returned for short-circuited calls and
// failed trial calls. It matches ErrOpen via errors.Is.
//
// When a call itself tripped the circuit (the FailMax-th failure, or a
// failed half-open trial), Cause holds the underlying operation error.
// The synthetic circuit-open error replaces the underlying one as the
// call's result; the cause remains reachable through errors.Unwrap for
// diagnostics.
type OpenError struct {
	// Breaker is the name of the circuit breaker that rejected the call.
	Breaker string

	// Reason describes why the circuit-open error was produced.
	Reason string

	// Cause is the operation error that tripped the circuit, if any.
	// It is nil for calls rejected during the fail-fast window.
	Cause error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.Breaker == "" {
		return fmt.Sprintf("circuit breaker is open: %s", e.Reason)
	}
	return fmt.Sprintf("circuit breaker %q is open: %s", e.Breaker, e.Reason)
}

// Is reports whether target is ErrOpen, so errors.Is(err, ErrOpen) holds
// for every OpenError regardless of cause.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Unwrap returns the operation error that tripped the circuit, if any.
func (e *OpenError) Unwrap() error {
	return e.Cause
}

// ErrorMatcher classifies an error. Matchers are used to mark business
// errors that must not count as breaker failures.
type ErrorMatcher func(error) bool

// MatchErrors returns an ErrorMatcher that matches any error for which
// errors.Is reports one of the given targets.
func MatchErrors(targets ...error) ErrorMatcher {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// MatchType returns an ErrorMatcher that matches any error assignable to
// the type T via errors.As.
func MatchType[T error]() ErrorMatcher {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}
