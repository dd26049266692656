// Command led-blinker toggles a GPIO-driven LED on a fixed interval and
// publishes its state to MQTT.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sweeney/led-blinker/internal/cliconfig"
	"github.com/sweeney/led-blinker/internal/config"
	"github.com/sweeney/led-blinker/internal/gpio"
	"github.com/sweeney/led-blinker/internal/logic"
	"github.com/sweeney/led-blinker/internal/metrics"
	"github.com/sweeney/led-blinker/internal/mqtt"
	"github.com/sweeney/led-blinker/internal/status"
	"github.com/sweeney/led-blinker/internal/web"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := cliconfig.Logger()
	if err := newRootCmd(log).Execute(); err != nil {
		log.Error().Err(err).Msg("led-blinker")
		os.Exit(1)
	}
}

func newRootCmd(log zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "led-blinker",
		Short:         "Blink a GPIO LED and publish its state to MQTT",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			if err := cliconfig.SetLevel(cfg.LogLevel); err != nil {
				return err
			}

			if cfg.PrintConfig {
				data, err := cliconfig.MarshalTOML(cfg)
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			return run(cfg, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.led-blinker/config.toml)")
	root.Flags().Uint64Var(&cfg.IntervalMs, "interval-ms", cfg.IntervalMs,
		fmt.Sprintf("toggle interval in milliseconds (%d-%d)", config.MinIntervalMs, config.MaxIntervalMs))
	root.Flags().StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip name")
	root.Flags().IntVar(&cfg.Pin, "pin", cfg.Pin, "GPIO line offset (BCM pin number) driving the LED")
	root.Flags().BoolVar(&cfg.ActiveLow, "active-low", cfg.ActiveLow, "LED is lit when the line is driven low")
	root.Flags().StringVar(&cfg.Broker, "broker", cfg.Broker, `MQTT broker address ("off" disables)`)
	root.Flags().StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	root.Flags().DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.PrintConfig, "print-config", false, "Print resolved configuration as TOML and exit")

	return root
}

// resolveConfig layers the config file and BLINKER_* env vars under the
// flags the user set explicitly, then validates the result.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

// newController builds the controller for the configured interval.
func newController(intervalMs uint64) (logic.Controller, error) {
	if intervalMs == config.DefaultIntervalMs {
		return logic.NewController(), nil
	}
	return logic.NewControllerWithInterval(intervalMs)
}

func run(cfg cliconfig.Config, log zerolog.Logger) error {
	ctrl, err := newController(cfg.IntervalMs)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	// Initialize GPIO
	writer, err := gpio.NewRealWriter(cfg.Chip, cfg.Pin, cfg.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer writer.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if cfg.MQTTEnabled() {
		p, err := mqtt.NewRealPublisher(cfg.Broker, log)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	broker := cfg.Broker
	if !cfg.MQTTEnabled() {
		broker = ""
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		IntervalMs:    ctrl.Interval(),
		MinIntervalMs: config.MinIntervalMs,
		MaxIntervalMs: config.MaxIntervalMs,
		Chip:          cfg.Chip,
		Pin:           cfg.Pin,
		ActiveLow:     cfg.ActiveLow,
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        broker,
		HTTPAddr:      cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(mqttStatus.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		metrics.IncPublishErrors("system")
		log.Warn().Err(err).Msg("failed to publish startup event")
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	// The timer period is programmed once from the controller.
	interval := config.Duration(ctrl.Interval())
	log.Info().
		Uint64("interval_ms", ctrl.Interval()).
		Str("chip", cfg.Chip).
		Int("pin", cfg.Pin).
		Bool("active_low", cfg.ActiveLow).
		Str("broker", broker).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// No-ops when not started by systemd (NOTIFY_SOCKET unset).
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("sd_notify ready failed")
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	return runLoop(log, ctrl, writer, publisher, mqttStatus, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop drives the controller: one toggle per tick, each written to the
// LED and published. It is the only goroutine that touches ctrl.
func runLoop(log zerolog.Logger, ctrl logic.Controller, writer gpio.Writer, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()
	var counts logic.EventCounts

	metrics.SetInterval(ctrl.Interval())

	// Drive the initial state before the first tick.
	initial := logic.ToLevel(ctrl.State())
	if err := writer.Write(initial); err != nil {
		metrics.IncGPIOWriteErrors()
		log.Error().Err(err).Msg("gpio initial write error")
	}
	metrics.SetLevel(initial)

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			if err := writer.Write(logic.ToLevel(logic.StateOff)); err != nil {
				metrics.IncGPIOWriteErrors()
				log.Error().Err(err).Msg("gpio write error on shutdown")
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				metrics.IncPublishErrors("system")
				log.Warn().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			state := ctrl.Toggle()
			level := logic.ToLevel(state)
			counts.Record(state)

			if err := writer.Write(level); err != nil {
				metrics.IncGPIOWriteErrors()
				log.Error().Err(err).Msg("gpio write error")
			}
			metrics.RecordToggle(state, level)
			log.Debug().Str("state", state.String()).Bool("level", level).Msg("toggle")

			if err := publisher.Publish(logic.NewEvent(state, ctrl.Interval(), t)); err != nil {
				// Don't crash on publish failure
				metrics.IncPublishErrors("event")
				log.Warn().Err(err).Msg("publish error")
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(state, level, counts, t)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t
			log.Info().Int("toggles", counts.Total()).Str("state", state.String()).Msg("heartbeat")

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				metrics.IncPublishErrors("system")
				log.Warn().Err(err).Msg("heartbeat publish error")
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
