package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func flagsWith(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_DefaultsWhenFileOmitsKeys(t *testing.T) {
	path := writeConfig(t, "port: \"9090\"\n")

	cfg, err := Load(flagsWith(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, 1, cfg.MQTT.QoS)
	assert.Equal(t, "bms/control", cfg.MQTT.Topics.Control)
	assert.Equal(t, "electronic_load/control", cfg.MQTT.Topics.ElectronicLoad)
	assert.Len(t, cfg.MQTT.Subscriptions, 4)
	assert.Equal(t, "http://localhost:8001", cfg.Hardware.URL)
	assert.True(t, cfg.Hardware.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Hardware.ProbeTimeout)
	assert.Equal(t, 5*time.Second, cfg.Hardware.RequestTimeout)
	assert.False(t, cfg.Simulator.Enabled)
}

func TestLoad_FileValuesAndDurations(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://broker:1883
  subscriptions: ["site1/bms/status", "site1/bms/control"]
hardware:
  url: http://hw:9000
  probe_timeout: 750ms
auth:
  enabled: true
  signing_key: secret
  token_ttl: 30m
`)
	cfg, err := Load(flagsWith(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, []string{"site1/bms/status", "site1/bms/control"}, cfg.MQTT.Subscriptions)
	assert.Equal(t, 750*time.Millisecond, cfg.Hardware.ProbeTimeout)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  broker: tcp://file:1883\n")
	t.Setenv("BMS_MQTT_BROKER", "tcp://env:1883")

	cfg, err := Load(flagsWith(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.MQTT.Broker)
}

func TestLoad_FlagOverridesFile(t *testing.T) {
	path := writeConfig(t, "port: \"9090\"\n")

	cfg, err := Load(flagsWith(t, "--config", path, "--port", "7070"))
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(flagsWith(t, "--config", filepath.Join(t.TempDir(), "nope.yml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			MQTT:     MQTTConfig{Broker: "tcp://b:1883", Subscriptions: []string{"bms/status"}, QoS: 1},
			Hardware: HardwareConfig{URL: "http://hw", Enabled: true},
		}
	}

	c := base()
	assert.NoError(t, c.Validate())

	c = base()
	c.MQTT.Broker = " "
	assert.ErrorIs(t, c.Validate(), errEmptyBroker)

	c = base()
	c.MQTT.Subscriptions = nil
	assert.ErrorIs(t, c.Validate(), errNoSubscriptions)

	c = base()
	c.MQTT.QoS = 3
	assert.ErrorIs(t, c.Validate(), errBadQoS)

	c = base()
	c.Hardware.URL = ""
	assert.ErrorIs(t, c.Validate(), errEmptyHardwareURL)

	c = base()
	c.Hardware.URL = ""
	c.Hardware.Enabled = false
	assert.NoError(t, c.Validate())

	c = base()
	c.Auth.Enabled = true
	assert.ErrorIs(t, c.Validate(), errMissingSigningKey)

	c = base()
	c.Simulator.Enabled = true
	assert.ErrorIs(t, c.Validate(), errSimulatorInterval)

	c.Simulator.Interval = -time.Second
	assert.ErrorIs(t, c.Validate(), errSimulatorInterval)

	c.Simulator.Interval = time.Second
	assert.NoError(t, c.Validate())

	c = base()
	c.Simulator.Interval = 0
	assert.NoError(t, c.Validate(), "interval is ignored while the simulator is off")
}
