package config

import "fmt"

// Validate checks configuration correctness. It performs declarative
// validation only and never mutates the configuration.
func Validate(cfg *Config) error {
	switch cfg.Transport.Kind {
	case "stream":
		if cfg.Transport.Device == "" {
			return fmt.Errorf("transport: stream requires a device")
		}
	case "mqtt":
		if cfg.Transport.Broker == "" {
			return fmt.Errorf("transport: mqtt requires a broker URL")
		}
	case "websocket":
		if cfg.Transport.Listen == "" {
			return fmt.Errorf("transport: websocket requires a listen address")
		}
	default:
		return fmt.Errorf("transport: unknown kind %q", cfg.Transport.Kind)
	}

	if cfg.Link.BudgetBytes < 0 {
		return fmt.Errorf("link: budget_bytes must not be negative")
	}
	if cfg.Mission.Capacity < 0 {
		return fmt.Errorf("mission: capacity must not be negative")
	}
	return nil
}
