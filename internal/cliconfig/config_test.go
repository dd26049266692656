package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/led-blinker/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, config.DefaultIntervalMs, cfg.IntervalMs)
	assert.Equal(t, "gpiochip0", cfg.Chip)
	assert.Equal(t, 17, cfg.Pin)
	assert.False(t, cfg.ActiveLow)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
	assert.True(t, cfg.MQTTEnabled())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		wantCfgEr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "min interval", mutate: func(c *Config) { c.IntervalMs = config.MinIntervalMs }},
		{name: "max interval", mutate: func(c *Config) { c.IntervalMs = config.MaxIntervalMs }},
		{name: "interval too small", mutate: func(c *Config) { c.IntervalMs = 9 }, wantErr: true, wantCfgEr: true},
		{name: "interval too large", mutate: func(c *Config) { c.IntervalMs = 10001 }, wantErr: true, wantCfgEr: true},
		{name: "pin zero", mutate: func(c *Config) { c.Pin = 0 }},
		{name: "negative pin", mutate: func(c *Config) { c.Pin = -1 }, wantErr: true},
		{name: "empty chip", mutate: func(c *Config) { c.Chip = "" }, wantErr: true},
		{name: "heartbeat disabled", mutate: func(c *Config) { c.Heartbeat = 0 }},
		{name: "negative heartbeat", mutate: func(c *Config) { c.Heartbeat = -time.Second }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var cfgErr *config.ConfigurationError
			assert.Equal(t, tt.wantCfgEr, errors.As(err, &cfgErr))
		})
	}
}

func TestMQTTEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = BrokerOff
	assert.False(t, cfg.MQTTEnabled())
	cfg.Broker = ""
	assert.False(t, cfg.MQTTEnabled())
	cfg.Broker = "tcp://10.0.0.1:1883"
	assert.True(t, cfg.MQTTEnabled())
}

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"BLINKER_INTERVAL_MS": "250",
				"BLINKER_CHIP":        "gpiochip4",
				"BLINKER_PIN":         "0",
				"BLINKER_ACTIVE_LOW":  "true",
				"BLINKER_BROKER":      "off",
				"BLINKER_HTTP":        ":9090",
				"BLINKER_HEARTBEAT":   "1m",
				"BLINKER_LOG_LEVEL":   "debug",
			},
			changed: map[string]bool{},
			expected: Config{
				IntervalMs: 250,
				Chip:       "gpiochip4",
				Pin:        0,
				ActiveLow:  true,
				Broker:     "off",
				HTTPAddr:   ":9090",
				Heartbeat:  time.Minute,
				LogLevel:   "debug",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"BLINKER_INTERVAL_MS": "250",
				"BLINKER_PIN":         "4",
			},
			changed: map[string]bool{"interval-ms": true},
			expected: func() Config {
				c := DefaultConfig()
				c.Pin = 4
				return c
			}(),
		},
		{
			name:    "explicit empty http disables server",
			envVars: map[string]string{"BLINKER_HTTP": ""},
			changed: map[string]bool{},
			expected: func() Config {
				c := DefaultConfig()
				c.HTTPAddr = ""
				return c
			}(),
		},
		{
			name:    "returns error for invalid interval",
			envVars: map[string]string{"BLINKER_INTERVAL_MS": "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid heartbeat",
			envVars: map[string]string{"BLINKER_HEARTBEAT": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := ApplyEnvConfig(&cfg, tt.changed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestApplyFileConfig(t *testing.T) {
	pin := 0
	trueVal := true
	httpAddr := ":81"
	noHTTP := ""

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		expected   func() Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				IntervalMs: 1000,
				Chip:       "gpiochip1",
				Pin:        &pin,
				ActiveLow:  &trueVal,
				Broker:     "tcp://broker:1883",
				HTTPAddr:   &httpAddr,
				Heartbeat:  "30s",
				LogLevel:   "warn",
			},
			changed: map[string]bool{},
			expected: func() Config {
				return Config{
					IntervalMs: 1000,
					Chip:       "gpiochip1",
					Pin:        0,
					ActiveLow:  true,
					Broker:     "tcp://broker:1883",
					HTTPAddr:   ":81",
					Heartbeat:  30 * time.Second,
					LogLevel:   "warn",
				}
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{IntervalMs: 1000, Chip: "gpiochip1"},
			changed:    map[string]bool{"interval-ms": true},
			expected: func() Config {
				c := DefaultConfig()
				c.Chip = "gpiochip1"
				return c
			},
		},
		{
			name:       "explicit empty http disables server",
			fileConfig: FileConfig{HTTPAddr: &noHTTP},
			changed:    map[string]bool{},
			expected: func() Config {
				c := DefaultConfig()
				c.HTTPAddr = ""
				return c
			},
		},
		{
			name:       "empty file leaves defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			expected:   DefaultConfig,
		},
		{
			name:       "returns error for invalid heartbeat",
			fileConfig: FileConfig{Heartbeat: "often"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected(), cfg)
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
interval_ms = 750
chip = "gpiochip0"
pin = 27
active_low = true
broker = "tcp://192.168.1.200:1883"
heartbeat = "5m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), fc.IntervalMs)
	require.NotNil(t, fc.Pin)
	assert.Equal(t, 27, *fc.Pin)
	require.NotNil(t, fc.ActiveLow)
	assert.True(t, *fc.ActiveLow)
	assert.Equal(t, "5m", fc.Heartbeat)

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "missing.toml")))
}

func TestLoadFileConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("interval_ms = ["), 0o644))

	_, err := LoadFileConfig(path)
	assert.Error(t, err)
}

func TestLoadFileConfigEmptyHTTP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("http = \"\"\n"), 0o644))

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)
	require.NotNil(t, fc.HTTPAddr)

	cfg := DefaultConfig()
	require.NoError(t, ApplyFileConfig(&cfg, fc, map[string]bool{}))
	assert.Empty(t, cfg.HTTPAddr)

	// Absent key keeps the default.
	require.NoError(t, os.WriteFile(path, []byte("pin = 4\n"), 0o644))
	fc, err = LoadFileConfig(path)
	require.NoError(t, err)
	assert.Nil(t, fc.HTTPAddr)
}

func TestMarshalTOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IntervalMs = 1200
	cfg.Pin = 0
	cfg.ActiveLow = true

	data, err := MarshalTOML(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)

	got := DefaultConfig()
	require.NoError(t, ApplyFileConfig(&got, fc, map[string]bool{}))
	assert.Equal(t, cfg, got)
}

func TestSetLevel(t *testing.T) {
	assert.NoError(t, SetLevel("debug"))
	assert.Error(t, SetLevel("chatty"))
	assert.NoError(t, SetLevel("info"))
}
