package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the homeai service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Scenes        ScenesConfig        `yaml:"scenes"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HomeAssistantConfig contains connection settings for the Home Assistant
// REST API.
type HomeAssistantConfig struct {
	URL             string `yaml:"url"`
	Token           string `yaml:"token"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Timeout returns the HTTP request timeout as a Duration.
func (c HomeAssistantConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the state-snapshot cache lifetime as a Duration.
func (c HomeAssistantConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MonitorConfig contains the tick interval, detection thresholds and
// cooldown windows for the monitoring engine. Durations are in seconds.
type MonitorConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`

	DoorOpenThresholdSeconds int `yaml:"door_open_threshold_seconds"`
	DoorCooldownSeconds      int `yaml:"door_cooldown_seconds"`

	MotionAlertsEnabled   bool `yaml:"motion_alerts_enabled"`
	MotionCooldownSeconds int  `yaml:"motion_cooldown_seconds"`

	WaterLeakAlertsEnabled bool `yaml:"water_leak_alerts_enabled"`

	TemperatureLow             float64 `yaml:"temperature_low"`
	TemperatureHigh            float64 `yaml:"temperature_high"`
	TemperatureCooldownSeconds int     `yaml:"temperature_cooldown_seconds"`

	OfflineCooldownSeconds        int `yaml:"offline_cooldown_seconds"`
	OfflineSummaryThreshold       int `yaml:"offline_summary_threshold"`
	OfflineSummaryCooldownSeconds int `yaml:"offline_summary_cooldown_seconds"`

	ActionTimeoutSeconds int `yaml:"action_timeout_seconds"`
}

// Interval returns the monitor tick interval as a Duration.
func (c MonitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ScenesConfig contains scene engine settings.
type ScenesConfig struct {
	SeedDefaults         bool `yaml:"seed_defaults"`
	ActionTimeoutSeconds int  `yaml:"action_timeout_seconds"`
}

// ActionTimeout returns the per-device action timeout as a Duration.
func (c ScenesConfig) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutSeconds) * time.Second
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMEAI_SECTION_KEY
// For example: HOMEAI_DATABASE_PATH, HOMEAI_HA_TOKEN
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. The detection
// thresholds mirror the values the monitoring checks were tuned with:
// 30 minutes for an open door, 5 minute motion cooldown, 10 to 30 degree
// comfort band, offline summary above 5 devices.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/homeai.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		HomeAssistant: HomeAssistantConfig{
			URL:             "http://localhost:8123",
			TimeoutSeconds:  10,
			CacheTTLSeconds: 30,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homeai-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Monitor: MonitorConfig{
			IntervalSeconds:               60,
			DoorOpenThresholdSeconds:      1800,
			DoorCooldownSeconds:           3600,
			MotionAlertsEnabled:           true,
			MotionCooldownSeconds:         300,
			WaterLeakAlertsEnabled:        true,
			TemperatureLow:                10,
			TemperatureHigh:               30,
			TemperatureCooldownSeconds:    3600,
			OfflineCooldownSeconds:        1800,
			OfflineSummaryThreshold:       5,
			OfflineSummaryCooldownSeconds: 3600,
			ActionTimeoutSeconds:          5,
		},
		Scenes: ScenesConfig{
			SeedDefaults:         true,
			ActionTimeoutSeconds: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMEAI_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HOMEAI_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Home Assistant. The token should come from the environment in
	// production rather than living in the config file.
	if v := os.Getenv("HOMEAI_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("HOMEAI_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}

	// MQTT
	if v := os.Getenv("HOMEAI_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEAI_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEAI_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HOMEAI_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("HOMEAI_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.HomeAssistant.URL == "" {
		errs = append(errs, "home_assistant.url is required")
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, "home_assistant.token is required (set HOMEAI_HA_TOKEN environment variable)")
	}
	if c.HomeAssistant.TimeoutSeconds < 1 {
		errs = append(errs, "home_assistant.timeout_seconds must be at least 1")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Monitor.IntervalSeconds < 1 {
		errs = append(errs, "monitor.interval_seconds must be at least 1")
	}
	if c.Monitor.TemperatureLow >= c.Monitor.TemperatureHigh {
		errs = append(errs, "monitor.temperature_low must be below monitor.temperature_high")
	}
	if c.Monitor.OfflineSummaryThreshold < 1 {
		errs = append(errs, "monitor.offline_summary_threshold must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
