// Package config holds the blink timing constants.
// All intervals are in milliseconds.
package config

import (
	"fmt"
	"time"
)

const (
	// DefaultIntervalMs is the delay between LED state transitions.
	// Used for both ON and OFF durations.
	DefaultIntervalMs uint64 = 500

	// MinIntervalMs is the fastest permitted toggle interval.
	MinIntervalMs uint64 = 10

	// MaxIntervalMs is the slowest permitted toggle interval (10 seconds).
	MaxIntervalMs uint64 = 10000
)

// ConfigurationError reports an interval outside [MinIntervalMs, MaxIntervalMs].
type ConfigurationError struct {
	IntervalMs uint64
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("interval %dms out of range [%d, %d]", e.IntervalMs, MinIntervalMs, MaxIntervalMs)
}

// ValidateInterval checks a caller-supplied interval against the bounds.
// The default interval is never checked at runtime.
func ValidateInterval(ms uint64) error {
	if ms < MinIntervalMs || ms > MaxIntervalMs {
		return &ConfigurationError{IntervalMs: ms}
	}
	return nil
}

// Duration converts a millisecond count into a time.Duration.
func Duration(ms uint64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
