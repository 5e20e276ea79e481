package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "STRESS", cfg.Device.DisplayMode)
	assert.True(t, cfg.Device.Active)
	assert.Equal(t, 10000, cfg.Device.SendInterval)
	assert.Equal(t, "rf_model.yaml", cfg.Models.Artifacts.RandomForest)
	assert.Equal(t, "0.0.0.0:5000", cfg.Address())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
  classify_timeout: 500ms
device:
  display_mode: HRV
  send_interval: 2000
models:
  dir: /opt/models
  artifacts:
    rf: rf.wasm
    xgb: xgb.wasm
    scaler: scaler.yaml
    labels: labels.yaml
kafka:
  brokers: [k1:9092]
`), 0o644))

	t.Setenv("STRESS_PORT", "9090")
	t.Setenv("STRESS_KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("STRESS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.ClassifyTimeout)
	assert.Equal(t, "HRV", cfg.Device.DisplayMode)
	assert.Equal(t, 2000, cfg.Device.SendInterval)
	assert.True(t, cfg.Device.Active, "unset fields keep defaults")
	assert.Equal(t, "/opt/models", cfg.Models.Dir)
	assert.Equal(t, "rf.wasm", cfg.Models.Artifacts.RandomForest)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_PlatformPort(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Config)
	}{
		{"server.port", func(c *Config) { c.Server.Port = 0 }},
		{"server.port", func(c *Config) { c.Server.Port = 70000 }},
		{"server.classify_timeout", func(c *Config) { c.Server.ClassifyTimeout = 0 }},
		{"device.send_interval", func(c *Config) { c.Device.SendInterval = -1 }},
		{"log.format", func(c *Config) { c.Log.Format = "xml" }},
		{"mqtt.qos", func(c *Config) { c.MQTT.QoS = 3 }},
		{"udp.format", func(c *Config) { c.UDP.Format = "csv" }},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(&cfg)
		err := cfg.Validate()

		var vErr *ValidationError
		if assert.True(t, errors.As(err, &vErr), "expected ValidationError for %s", tt.field) {
			assert.Equal(t, tt.field, vErr.Field)
		}
	}
}
