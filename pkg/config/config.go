// Package config loads TOML configuration with environment variable
// overrides and schema validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the marketdata service.
type Config struct {
	// Service name, used as the metrics subsystem and in health payloads.
	ServiceName string `mapstructure:"service_name"`
	// Service version.
	Version string `mapstructure:"version"`
	// Environment: dev, staging, prod.
	Environment string `mapstructure:"environment"`
	// HTTP server configuration.
	HTTP HTTPConfig `mapstructure:"http"`
	// Database configuration.
	Database DatabaseConfig `mapstructure:"database"`
	// Redis configuration.
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka configuration.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Broker bootstrap configuration.
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	// Logger configuration.
	Logger LoggerConfig `mapstructure:"logger"`
	// Metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Read timeout in seconds.
	ReadTimeout int `mapstructure:"read_timeout"`
	// Write timeout in seconds.
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig holds MySQL settings.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	// Connection max lifetime in seconds.
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// Log queries and report slow ones above the threshold.
	LogEnabled         bool `mapstructure:"log_enabled"`
	SlowQueryThreshold int  `mapstructure:"slow_query_threshold"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
	// Timeouts in seconds.
	ConnTimeout  int `mapstructure:"conn_timeout"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig holds broker and consumer group settings.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// Topics consumed by this service.
	PriceTopic string `mapstructure:"price_topic"`
	NewsTopic  string `mapstructure:"news_topic"`
	// Dead letter topic for poison messages.
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
	// Consumer session timeout in seconds.
	SessionTimeout int `mapstructure:"session_timeout"`
	// Optional SASL/PLAIN credentials. An empty username disables SASL.
	SASLUsername string `mapstructure:"sasl_username"`
	SASLPassword string `mapstructure:"sasl_password"`
}

// BootstrapConfig controls the startup connection sequence to the broker.
type BootstrapConfig struct {
	// Wait before the first connect attempt, in seconds.
	StabilizationWait int `mapstructure:"stabilization_wait"`
	// Maximum connect attempts before the service goes degraded.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Exponential backoff base, in milliseconds.
	BackoffBaseMS int `mapstructure:"backoff_base_ms"`
	// Backoff ceiling, in milliseconds.
	BackoffCapMS int `mapstructure:"backoff_cap_ms"`
	// Per-attempt connect timeout, in seconds.
	ConnectTimeout int `mapstructure:"connect_timeout"`
}

// StabilizationDuration returns the stabilization wait as a duration.
func (b BootstrapConfig) StabilizationDuration() time.Duration {
	return time.Duration(b.StabilizationWait) * time.Second
}

// BackoffBase returns the backoff base as a duration.
func (b BootstrapConfig) BackoffBase() time.Duration {
	return time.Duration(b.BackoffBaseMS) * time.Millisecond
}

// BackoffCap returns the backoff ceiling as a duration.
func (b BootstrapConfig) BackoffCap() time.Duration {
	return time.Duration(b.BackoffCapMS) * time.Millisecond
}

// ConnectTimeoutDuration returns the connect timeout as a duration.
func (b BootstrapConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(b.ConnectTimeout) * time.Second
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output target: stdout, file, both.
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
	// Max file size in MB before rotation.
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
	WithCaller bool `mapstructure:"with_caller"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load reads the TOML file at configPath, applies APP_* environment
// overrides and defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables win over the file, e.g. APP_KAFKA_GROUP_ID.
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for usable values.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Bootstrap.MaxAttempts <= 0 {
		return fmt.Errorf("bootstrap max_attempts must be positive")
	}
	if c.Bootstrap.BackoffBaseMS <= 0 || c.Bootstrap.BackoffCapMS < c.Bootstrap.BackoffBaseMS {
		return fmt.Errorf("invalid bootstrap backoff window: base=%dms cap=%dms",
			c.Bootstrap.BackoffBaseMS, c.Bootstrap.BackoffCapMS)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.group_id", "marketdata-group")
	v.SetDefault("kafka.price_topic", "market.price")
	v.SetDefault("kafka.news_topic", "market.news")
	v.SetDefault("kafka.dead_letter_topic", "market.dlq")
	v.SetDefault("kafka.session_timeout", 10)

	v.SetDefault("bootstrap.stabilization_wait", 15)
	v.SetDefault("bootstrap.max_attempts", 10)
	v.SetDefault("bootstrap.backoff_base_ms", 1000)
	v.SetDefault("bootstrap.backoff_cap_ms", 30000)
	v.SetDefault("bootstrap.connect_timeout", 5)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/marketdata.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

// GetEnv reads an environment variable with a fallback.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
