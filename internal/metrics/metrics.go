// Package metrics provides Prometheus metrics for the led-blinker daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/led-blinker/internal/logic"
)

var (
	ledToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blinker",
		Subsystem: "led",
		Name:      "toggles_total",
		Help:      "Total LED toggles by resulting state",
	}, []string{"state"})

	ledLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinker",
		Subsystem: "led",
		Name:      "level",
		Help:      "Current LED output level (1 = high)",
	})

	ledInterval = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blinker",
		Subsystem: "led",
		Name:      "interval_ms",
		Help:      "Configured toggle interval in milliseconds",
	})

	gpioWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blinker",
		Subsystem: "gpio",
		Name:      "write_errors_total",
		Help:      "Total failed GPIO writes",
	})

	mqttPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blinker",
		Subsystem: "mqtt",
		Name:      "publish_errors_total",
		Help:      "Total failed MQTT publishes by message kind",
	}, []string{"kind"})
)

// RecordToggle counts a toggle into state and updates the level gauge.
func RecordToggle(state logic.State, level bool) {
	ledToggles.WithLabelValues(state.String()).Inc()
	SetLevel(level)
}

// SetLevel sets the LED level gauge.
func SetLevel(level bool) {
	if level {
		ledLevel.Set(1)
	} else {
		ledLevel.Set(0)
	}
}

// SetInterval records the configured toggle interval.
func SetInterval(ms uint64) {
	ledInterval.Set(float64(ms))
}

// IncGPIOWriteErrors counts a failed GPIO write.
func IncGPIOWriteErrors() {
	gpioWriteErrors.Inc()
}

// IncPublishErrors counts a failed MQTT publish. kind is "event" or "system".
func IncPublishErrors(kind string) {
	mqttPublishErrors.WithLabelValues(kind).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
