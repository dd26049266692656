package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	IntervalMs uint64 `toml:"interval_ms"`
	Chip       string `toml:"chip"`
	Pin        *int   `toml:"pin"`
	ActiveLow  *bool  `toml:"active_low"`
	Broker     string `toml:"broker"`
	HTTPAddr   *string `toml:"http"`
	Heartbeat  string `toml:"heartbeat"`
	LogLevel   string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.led-blinker/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".led-blinker", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setUint64("interval-ms", fc.IntervalMs, &cfg.IntervalMs)
	s.setString("chip", fc.Chip, &cfg.Chip)
	s.setIntPtr("pin", fc.Pin, &cfg.Pin)
	s.setBool("active-low", fc.ActiveLow, &cfg.ActiveLow)
	s.setString("broker", fc.Broker, &cfg.Broker)
	s.setStringPtr("http", fc.HTTPAddr, &cfg.HTTPAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("heartbeat", fc.Heartbeat, &cfg.Heartbeat); err != nil {
		return err
	}

	return nil
}

// MarshalTOML renders cfg in the config file format.
func MarshalTOML(cfg Config) ([]byte, error) {
	pin := cfg.Pin
	activeLow := cfg.ActiveLow
	httpAddr := cfg.HTTPAddr
	return toml.Marshal(FileConfig{
		IntervalMs: cfg.IntervalMs,
		Chip:       cfg.Chip,
		Pin:        &pin,
		ActiveLow:  &activeLow,
		Broker:     cfg.Broker,
		HTTPAddr:   &httpAddr,
		Heartbeat:  cfg.Heartbeat.String(),
		LogLevel:   cfg.LogLevel,
	})
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
