// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Adapter   AdapterConfig   `mapstructure:"adapter"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	DB        DBConfig        `mapstructure:"db"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DispatchConfig governs fan-out behavior.
type DispatchConfig struct {
	Concurrency    int `mapstructure:"concurrency"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	Workers        int `mapstructure:"workers"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	RetryDelaySec  int `mapstructure:"retry_delay_seconds"`
}

// AdapterConfig configures the outbound HTTP client.
type AdapterConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// DetectorConfig configures the content change detector.
type DetectorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
	UserAgent      string `mapstructure:"user_agent"`
}

// RateLimitConfig throttles outbound calls per target host.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CatalogConfig carries per-target keys injected into the built-in catalog.
type CatalogConfig struct {
	IndexNowKey string `mapstructure:"indexnow_key"`
	NaverKey    string `mapstructure:"naver_key"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// stores, which only suit local development.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	ConnLifetimeMinute int    `mapstructure:"conn_lifetime_minutes"`
}

// QueueConfig sizes the asynchronous dispatch queue.
type QueueConfig struct {
	Depth int `mapstructure:"depth"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PINGD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("auth.enabled", true)
	v.SetDefault("dispatch.concurrency", 8)
	v.SetDefault("dispatch.timeout_seconds", 45)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.retry_delay_seconds", 5)
	v.SetDefault("adapter.timeout_seconds", 10)
	v.SetDefault("adapter.user_agent", "pingd/1.0")
	v.SetDefault("detector.enabled", true)
	v.SetDefault("detector.timeout_seconds", 10)
	v.SetDefault("detector.max_body_bytes", 2<<20)
	v.SetDefault("detector.user_agent", "pingd/1.0")
	v.SetDefault("ratelimit.requests_per_second", 2)
	v.SetDefault("ratelimit.burst", 4)
	v.SetDefault("queue.depth", 256)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Dispatch.Concurrency <= 0 {
		return fmt.Errorf("dispatch.concurrency must be > 0")
	}
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("dispatch.workers must be > 0")
	}
	if c.Adapter.TimeoutSeconds <= 0 {
		return fmt.Errorf("adapter.timeout_seconds must be > 0")
	}
	if c.Queue.Depth <= 0 {
		return fmt.Errorf("queue.depth must be > 0")
	}
	if c.Detector.Enabled && c.Detector.TimeoutSeconds <= 0 {
		return fmt.Errorf("detector.timeout_seconds must be > 0 when the detector is enabled")
	}
	return nil
}

// ServerTimeout is the whole-request deadline for the HTTP server.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// DispatchTimeout bounds one dispatch fan-out.
func (c Config) DispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.TimeoutSeconds) * time.Second
}

// AdapterTimeout bounds a single target invocation.
func (c Config) AdapterTimeout() time.Duration {
	return time.Duration(c.Adapter.TimeoutSeconds) * time.Second
}

// RetryDelay is the pause before a failed async dispatch is requeued.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Dispatch.RetryDelaySec) * time.Second
}
