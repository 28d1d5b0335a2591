package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration validates that a duration is positive
// (greater than zero).
//
// This is used for timeout and window validation where a non-zero,
// positive value is required.
//
// Example:
//
//	if err := ValidatePositiveDuration(resetTimeout); err != nil {
//	    return fmt.Errorf("invalid reset timeout: %w", err)
//	}
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateNonNegativeDuration validates that a duration is non-negative
// (>= 0).
//
// This is useful for optional timeouts or delays where zero is
// acceptable but negative values are not.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %v", d)
	}
	return nil
}
