// Package logic contains the pure LED blink state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the logical state of the LED.
// The zero value is StateOff.
type State uint8

const (
	StateOff State = iota
	StateOn
)

// String returns "ON" or "OFF".
func (s State) String() string {
	if s == StateOn {
		return "ON"
	}
	return "OFF"
}

// MarshalText encodes the state as "ON" or "OFF".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventType represents a state transition event.
type EventType string

const (
	EventOn  EventType = "LED_ON"
	EventOff EventType = "LED_OFF"
)

// Event represents a toggle to be published.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	State      State
	Level      bool
	IntervalMs uint64
}

// NewEvent builds the event describing a transition into state.
func NewEvent(state State, intervalMs uint64, at time.Time) Event {
	typ := EventOff
	if state == StateOn {
		typ = EventOn
	}
	return Event{
		Timestamp:  at,
		Type:       typ,
		State:      state,
		Level:      ToLevel(state),
		IntervalMs: intervalMs,
	}
}

// EventCounts tracks the number of transitions into each state since startup.
type EventCounts struct {
	On  int
	Off int
}

// Record counts a transition into state.
func (c *EventCounts) Record(state State) {
	if state == StateOn {
		c.On++
	} else {
		c.Off++
	}
}

// Total returns the number of toggles recorded.
func (c EventCounts) Total() int {
	return c.On + c.Off
}
