package breaker

import "time"

// Clock provides an abstraction for time operations to enable testing.
//
// This interface allows for dependency injection of time functions,
// making it easy to test time-dependent behavior with fake clocks.
type Clock interface {
	// Now returns the current time.
	//
	// Production implementations should return time.Now().
	// Test implementations can return fixed or controlled times.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time in UTC.
//
// Breaker timestamps are always UTC so that processes in different
// timezones sharing one storage backend agree on the open window.
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}
