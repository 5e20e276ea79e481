// Package config loads service configuration from defaults, an optional YAML
// file and STRESS_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/synheart/synheart-stress/internal/classifier"
	"github.com/synheart/synheart-stress/internal/models"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STRESS"

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Models ModelsConfig `yaml:"models"`
	Device DeviceConfig `yaml:"device"`
	Log    LogConfig    `yaml:"log"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	UDP    UDPConfig    `yaml:"udp"`
	Record RecordConfig `yaml:"record"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ClassifyTimeout time.Duration `yaml:"classify_timeout"`
	FeedBuffer      int           `yaml:"feed_buffer"`
}

// ModelsConfig locates the model artifacts. An empty Dir selects the
// artifacts embedded in the binary.
type ModelsConfig struct {
	Dir       string               `yaml:"dir"`
	Artifacts classifier.Artifacts `yaml:"artifacts"`
}

// DeviceConfig holds the initial control values.
type DeviceConfig struct {
	DisplayMode  string `yaml:"display_mode"`
	Active       bool   `yaml:"active"`
	SendInterval int    `yaml:"send_interval"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MQTTConfig configures the broker bridge. Publishing and ingestion are
// independent; an empty topic disables that direction.
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	QoS           byte   `yaml:"qos"`
	ReadingsTopic string `yaml:"readings_topic"`
	SamplesTopic  string `yaml:"samples_topic"`
}

// RedisConfig configures the pub/sub sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	Key      string `yaml:"key"`
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Key     string   `yaml:"key"`
}

// UDPConfig configures the UDP broadcaster for display devices.
type UDPConfig struct {
	Port   int    `yaml:"port"`
	Format string `yaml:"format"`
}

// RecordConfig enables NDJSON recording of snapshots.
type RecordConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			CORSOrigins:     []string{"*"},
			ClassifyTimeout: 2 * time.Second,
			FeedBuffer:      100,
		},
		Models: ModelsConfig{
			Artifacts: classifier.DefaultArtifacts(),
		},
		Device: DeviceConfig{
			DisplayMode:  models.DefaultDisplayMode,
			Active:       true,
			SendInterval: models.DefaultSendInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		MQTT: MQTTConfig{
			ClientID:      "synheart-stress",
			QoS:           1,
			ReadingsTopic: "synheart/stress/readings",
		},
		Redis: RedisConfig{
			Channel: "synheart:stress:readings",
		},
		Kafka: KafkaConfig{
			Topic: "synheart.stress.readings",
			Key:   "default",
		},
		UDP: UDPConfig{
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	cfg.LoadFromEnv(EnvPrefix)
	return cfg, cfg.Validate()
}

// LoadFromEnv applies environment overrides. PORT is honoured for hosting
// platforms that inject it.
func (c *Config) LoadFromEnv(prefix string) {
	if port := os.Getenv("PORT"); port != "" {
		setInt(&c.Server.Port, port)
	}
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		setInt(&c.Server.Port, v)
	}
	if v := os.Getenv(prefix + "_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv(prefix + "_CLASSIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.ClassifyTimeout = d
		}
	}
	if v := os.Getenv(prefix + "_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv(prefix + "_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(prefix + "_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(prefix + "_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv(prefix + "_MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv(prefix + "_MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv(prefix + "_MQTT_SAMPLES_TOPIC"); v != "" {
		c.MQTT.SamplesTopic = v
	}
	if v := os.Getenv(prefix + "_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(prefix + "_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(prefix + "_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv(prefix + "_KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv(prefix + "_UDP_PORT"); v != "" {
		setInt(&c.UDP.Port, v)
	}
	if v := os.Getenv(prefix + "_RECORD"); v != "" {
		c.Record.Path = v
	}
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Server.ClassifyTimeout <= 0 {
		return &ValidationError{Field: "server.classify_timeout", Message: "must be positive"}
	}
	if c.Server.FeedBuffer < 0 {
		return &ValidationError{Field: "server.feed_buffer", Message: "must not be negative"}
	}
	if c.Device.SendInterval <= 0 {
		return &ValidationError{Field: "device.send_interval", Message: "must be positive"}
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return &ValidationError{Field: "log.format", Message: "must be json or console"}
	}
	if c.MQTT.QoS > 2 {
		return &ValidationError{Field: "mqtt.qos", Message: "must be 0, 1 or 2"}
	}
	if c.UDP.Port < 0 || c.UDP.Port > 65535 {
		return &ValidationError{Field: "udp.port", Message: "must be between 0 and 65535"}
	}
	if c.UDP.Format != "json" && c.UDP.Format != "protobuf" {
		return &ValidationError{Field: "udp.format", Message: "must be json or protobuf"}
	}
	return nil
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setInt(dst *int, s string) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*dst = n
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
