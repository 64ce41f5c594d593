package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
transport:
  kind: mqtt
  broker: mqtt://broker.local:1883/vessels/slug1
link:
  budget_bytes: 200
watchdog:
  gps_timeout_ticks: 500
  gcs_timeout_ticks: 6000
  startup_hold_ticks: 100
mission:
  capacity: 32
`))
	require.NoError(t, err)
	require.Equal(t, "mqtt", cfg.Transport.Kind)
	require.Equal(t, "mqtt://broker.local:1883/vessels/slug1", cfg.Transport.Broker)
	require.Equal(t, 200, cfg.Link.BudgetBytes)
	require.Equal(t, uint32(500), cfg.Watchdog.GPSTimeoutTicks)
	require.Equal(t, uint32(6000), cfg.Watchdog.GCSTimeoutTicks)
	require.Equal(t, uint32(100), cfg.Watchdog.StartupHoldTicks)
	require.Equal(t, 32, cfg.Mission.Capacity)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, "stream", cfg.Transport.Kind)
	require.Equal(t, "-", cfg.Transport.Device)
	require.Zero(t, cfg.Link.BudgetBytes)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown kind", "transport: {kind: carrier-pigeon}", "unknown kind"},
		{"mqtt without broker", "transport: {kind: mqtt}", "broker"},
		{"websocket without listen", "transport: {kind: websocket}", "listen"},
		{"negative budget", "link: {budget_bytes: -1}", "budget_bytes"},
		{"negative capacity", "mission: {capacity: -4}", "capacity"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), c.want)
		})
	}
}
