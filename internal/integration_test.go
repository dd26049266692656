package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/led-blinker/internal/config"
	"github.com/sweeney/led-blinker/internal/gpio"
	"github.com/sweeney/led-blinker/internal/logic"
	"github.com/sweeney/led-blinker/internal/mqtt"
	"github.com/sweeney/led-blinker/internal/status"
)

// blink runs n toggle cycles from the controller through to the writer,
// publisher and tracker, the same way the daemon does on each tick.
func blink(ctrl *logic.Controller, w gpio.Writer, pub mqtt.Publisher, tr *status.Tracker, start time.Time, n int) (logic.EventCounts, []error) {
	var counts logic.EventCounts
	var errs []error
	step := config.Duration(ctrl.Interval())

	for i := 1; i <= n; i++ {
		at := start.Add(time.Duration(i) * step)
		state := ctrl.Toggle()
		level := logic.ToLevel(state)
		counts.Record(state)

		if err := w.Write(level); err != nil {
			errs = append(errs, err)
		}
		if err := pub.Publish(logic.NewEvent(state, ctrl.Interval(), at)); err != nil {
			errs = append(errs, err)
		}
		tr.Update(state, level, counts, at)
	}
	return counts, errs
}

// TestIntegrationFullFlow tests the complete flow from controller to GPIO and MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctrl := logic.NewController()
	w := gpio.NewFakeWriter()
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(start, status.Config{IntervalMs: ctrl.Interval()})

	counts, errs := blink(&ctrl, w, pub, tr, start, 6)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	wantLevels := []bool{true, false, true, false, true, false}
	if len(w.Levels) != len(wantLevels) {
		t.Fatalf("expected %d writes, got %d", len(wantLevels), len(w.Levels))
	}
	for i, want := range wantLevels {
		if w.Levels[i] != want {
			t.Errorf("write %d: got %v, want %v", i, w.Levels[i], want)
		}
	}

	if len(pub.Events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(pub.Events))
	}
	for i, e := range pub.Events {
		if e.Level != w.Levels[i] {
			t.Errorf("event %d level %v does not match GPIO write %v", i, e.Level, w.Levels[i])
		}
		if i > 0 {
			if gap := e.Timestamp.Sub(pub.Events[i-1].Timestamp); gap != 500*time.Millisecond {
				t.Errorf("event %d: gap got %v, want 500ms", i, gap)
			}
		}
	}

	if counts.On != 3 || counts.Off != 3 {
		t.Errorf("counts: got %+v, want {On:3 Off:3}", counts)
	}

	snap := tr.Snapshot()
	if snap.State != logic.StateOff || snap.Level {
		t.Errorf("tracker: got %s/%v, want OFF/false", snap.State, snap.Level)
	}
	if snap.Counts != counts {
		t.Errorf("tracker counts: got %+v, want %+v", snap.Counts, counts)
	}
}

// TestIntegrationNoEventsBeforeFirstTick verifies a fresh controller is OFF with nothing published.
func TestIntegrationNoEventsBeforeFirstTick(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctrl := logic.NewController()
	w := gpio.NewFakeWriter()
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(start, status.Config{})

	blink(&ctrl, w, pub, tr, start, 0)

	if len(pub.Events) != 0 {
		t.Errorf("expected no events, got %d", len(pub.Events))
	}
	if _, wrote := w.Last(); wrote {
		t.Error("expected no GPIO writes")
	}
	if logic.ToLevel(ctrl.State()) {
		t.Error("LED should start low")
	}
}

// TestIntegrationCustomInterval verifies the configured interval flows into every event.
func TestIntegrationCustomInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctrl, err := logic.NewControllerWithInterval(config.MinIntervalMs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := gpio.NewFakeWriter()
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(start, status.Config{IntervalMs: ctrl.Interval()})

	blink(&ctrl, w, pub, tr, start, 4)

	for i, payload := range pub.Payloads {
		var p mqtt.Payload
		if err := json.Unmarshal(payload, &p); err != nil {
			t.Fatalf("payload %d: invalid JSON: %v", i, err)
		}
		if p.LED.IntervalMs != config.MinIntervalMs {
			t.Errorf("payload %d: interval_ms got %d, want %d", i, p.LED.IntervalMs, config.MinIntervalMs)
		}
	}
	if last := pub.Events[len(pub.Events)-1].Timestamp; !last.Equal(start.Add(40 * time.Millisecond)) {
		t.Errorf("last event at %v, want start+40ms", last)
	}
}

// TestIntegrationPublishFailureDoesNotCrash verifies toggling continues when MQTT fails.
func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctrl := logic.NewController()
	w := gpio.NewFakeWriter()
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("simulated MQTT failure")
	tr := status.NewTracker(start, status.Config{})

	_, errs := blink(&ctrl, w, pub, tr, start, 3)

	if len(errs) != 3 {
		t.Errorf("expected 3 publish errors, got %d", len(errs))
	}
	if len(w.Levels) != 3 {
		t.Errorf("GPIO should still be driven, got %d writes", len(w.Levels))
	}
	if ctrl.State() != logic.StateOn {
		t.Errorf("expected ON after 3 toggles, got %s", ctrl.State())
	}
}

// TestIntegrationPayloadFormat verifies the JSON sent for a toggle.
func TestIntegrationPayloadFormat(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctrl := logic.NewController()
	pub := mqtt.NewFakePublisher()

	blink(&ctrl, gpio.NewFakeWriter(), pub, status.NewTracker(start, status.Config{}), start, 2)

	want := []string{
		`{"led":{"timestamp":"2026-01-01T12:00:00Z","event":"LED_ON","state":"ON","level":true,"interval_ms":500}}`,
		`{"led":{"timestamp":"2026-01-01T12:00:01Z","event":"LED_OFF","state":"OFF","level":false,"interval_ms":500}}`,
	}
	for i, w := range want {
		if got := string(pub.Payloads[i]); got != w {
			t.Errorf("payload %d:\n got  %s\n want %s", i, got, w)
		}
	}
}

// TestIntegrationShutdownPayloadFormat verifies the SHUTDOWN status event after a run.
func TestIntegrationShutdownPayloadFormat(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctrl := logic.NewController()
	w := gpio.NewFakeWriter()
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(start, status.Config{IntervalMs: ctrl.Interval(), Broker: "tcp://localhost:1883"})

	blink(&ctrl, w, pub, tr, start, 5)

	snap := tr.Snapshot()
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	})
	if err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("got %s/%s, want SHUTDOWN/SIGTERM", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.State != "ON" {
		t.Errorf("state after 5 toggles: got %q, want ON", parsed.Status.State)
	}
	if parsed.Status.Counts.Total != 5 {
		t.Errorf("total toggles: got %d, want 5", parsed.Status.Counts.Total)
	}
	if parsed.Status.LastToggle != "2026-01-01T00:00:02Z" {
		t.Errorf("last_toggle: got %q", parsed.Status.LastToggle)
	}
}
