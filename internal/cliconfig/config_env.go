package cliconfig

import "os"

// ApplyEnvConfig applies BLINKER_* environment variables to cfg.
// Flags the user set explicitly (changed) take precedence.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("chip", os.Getenv("BLINKER_CHIP"), &cfg.Chip)
	s.setString("broker", os.Getenv("BLINKER_BROKER"), &cfg.Broker)
	if v, ok := os.LookupEnv("BLINKER_HTTP"); ok {
		s.setStringPtr("http", &v, &cfg.HTTPAddr)
	}
	s.setString("log-level", os.Getenv("BLINKER_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setUint64FromString("interval-ms", os.Getenv("BLINKER_INTERVAL_MS"), &cfg.IntervalMs); err != nil {
		return err
	}
	if err := s.setIntFromString("pin", os.Getenv("BLINKER_PIN"), &cfg.Pin); err != nil {
		return err
	}
	if err := s.setDuration("heartbeat", os.Getenv("BLINKER_HEARTBEAT"), &cfg.Heartbeat); err != nil {
		return err
	}

	s.setBoolFromString("active-low", os.Getenv("BLINKER_ACTIVE_LOW"), &cfg.ActiveLow)

	return nil
}
