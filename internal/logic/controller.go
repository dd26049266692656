package logic

import "github.com/sweeney/led-blinker/internal/config"

// Controller owns the LED state and its toggle interval.
// It is a plain value: copies evolve independently and == compares state and interval.
// Not safe for concurrent use; the driver must serialize Toggle calls.
type Controller struct {
	state    State
	interval uint64
}

// NewController creates a controller in StateOff with the default interval.
func NewController() Controller {
	return Controller{
		state:    StateOff,
		interval: config.DefaultIntervalMs,
	}
}

// NewControllerWithInterval creates a controller in StateOff with the given
// interval in milliseconds. It returns a *config.ConfigurationError when the
// interval is outside the configured bounds.
func NewControllerWithInterval(ms uint64) (Controller, error) {
	if err := config.ValidateInterval(ms); err != nil {
		return Controller{}, err
	}
	return Controller{
		state:    StateOff,
		interval: ms,
	}, nil
}

// Toggle flips the state and returns the new value.
// The interval is never modified.
func (c *Controller) Toggle() State {
	switch c.state {
	case StateOn:
		c.state = StateOff
	default: // StateOff
		c.state = StateOn
	}
	return c.state
}

// State returns the current logical state.
func (c Controller) State() State {
	return c.state
}

// Interval returns the toggle interval in milliseconds.
func (c Controller) Interval() uint64 {
	return c.interval
}

// ToLevel maps a logical state to an output level: ON is high, OFF is low.
func ToLevel(s State) bool {
	return s == StateOn
}
