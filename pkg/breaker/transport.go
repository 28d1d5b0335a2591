package breaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// UpstreamStatusError marks an HTTP response whose status code the
// transport classified as a dependency failure. The response is still
// delivered to the caller; the error exists so the breaker counts it.
type UpstreamStatusError struct {
	// StatusCode is the upstream response status.
	StatusCode int
}

// Error implements the error interface.
func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Transport is an http.RoundTripper that routes every request through a
// per-dependency circuit breaker.
//
// Requests carrying the WithSkip context flag bypass the breaker. When
// the circuit for a dependency is open, RoundTrip fails with an error
// matching ErrOpen without contacting the upstream; how that surfaces to
// end users (e.g. as a 503) is the owning application's decision.
type Transport struct {
	// Base performs the actual requests.
	// Default: http.DefaultTransport
	Base http.RoundTripper

	// Registry supplies the breaker for each dependency. Required.
	Registry *Registry

	// Key derives the dependency name from a request.
	// Default: the request URL's host.
	Key func(*http.Request) string

	// FailureStatus classifies response status codes that count as
	// dependency failures.
	// Default: codes >= 500
	FailureStatus func(status int) bool
}

// NewTransport creates a Transport over the given registry with default
// base transport, key derivation and failure classification.
func NewTransport(registry *Registry) *Transport {
	return &Transport{Registry: registry}
}

// RoundTrip implements http.RoundTripper.
//
// Responses classified as failures by FailureStatus are counted against
// the breaker but still returned to the caller with a nil error, like
// any http.RoundTripper would.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := req.Context()
	if Skipped(ctx) {
		return base.RoundTrip(req)
	}

	key := req.URL.Host
	if t.Key != nil {
		key = t.Key(req)
	}
	failure := t.FailureStatus
	if failure == nil {
		failure = func(status int) bool { return status >= http.StatusInternalServerError }
	}

	cb := t.Registry.Get(key)

	var resp *http.Response
	err := cb.Call(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = base.RoundTrip(req.WithContext(ctx))
		if callErr != nil {
			return callErr
		}
		if failure(resp.StatusCode) {
			return &UpstreamStatusError{StatusCode: resp.StatusCode}
		}
		return nil
	})

	// A failure-classified response is a breaker failure but still a
	// response; deliver it even if this call tripped the circuit.
	if resp != nil {
		var statusErr *UpstreamStatusError
		if err == nil || errors.As(err, &statusErr) {
			return resp, nil
		}
	}
	return nil, err
}
