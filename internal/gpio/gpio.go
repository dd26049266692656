// Package gpio provides GPIO output writing with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives a single GPIO output line.
type Writer interface {
	// Write sets the line level. true = active (LED lit).
	// Polarity is handled by the implementation, not the caller.
	Write(level bool) error

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

func levelValue(level bool) int {
	if level {
		return 1
	}
	return 0
}
