// Package config loads and checks the node's YAML configuration.
package config

import (
	"fmt"
	"io/ioutil"

	yaml "gopkg.in/yaml.v3"
)

// Config is the root of the node configuration file.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Link      LinkConfig      `yaml:"link"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Mission   MissionConfig   `yaml:"mission"`
}

// TransportConfig selects and parameterizes the ground-station
// transport.
type TransportConfig struct {
	Kind   string `yaml:"kind"`   // stream | mqtt | websocket
	Device string `yaml:"device"` // stream: serial device, "-" for stdio
	Broker string `yaml:"broker"` // mqtt: broker URL
	Listen string `yaml:"listen"` // websocket: listen address
}

// LinkConfig tunes the outbound scheduler.
type LinkConfig struct {
	// BudgetBytes is the per-tick transmit byte budget; zero keeps the
	// built-in default.
	BudgetBytes int `yaml:"budget_bytes"`
}

// WatchdogConfig overrides the disconnect thresholds, in control ticks.
// Zero values keep the built-in defaults.
type WatchdogConfig struct {
	GPSTimeoutTicks  uint32 `yaml:"gps_timeout_ticks"`
	GCSTimeoutTicks  uint32 `yaml:"gcs_timeout_ticks"`
	StartupHoldTicks uint32 `yaml:"startup_hold_ticks"`
}

// MissionConfig bounds the onboard mission list.
type MissionConfig struct {
	Capacity int `yaml:"capacity"`
}

// Default returns the built-in configuration: a stdio stream transport
// with all rates and thresholds at their package defaults.
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Load reads, parses, normalizes and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes raw YAML into a validated configuration.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %v", err)
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills in defaults. It runs before Validate so defaults are
// checked like explicit values.
func Normalize(cfg *Config) {
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "stream"
	}
	if cfg.Transport.Kind == "stream" && cfg.Transport.Device == "" {
		cfg.Transport.Device = "-"
	}
}
