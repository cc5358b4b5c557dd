// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Caches   CachesConfig   `yaml:"caches"`
	Models   []ModelConfig  `yaml:"models"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// LedgerConfig configures the credit ledger backend.
// Use "stripe" for Stripe customer balances, "remote" for an HTTP billing
// service, or "static" for a fixed in-memory ledger (tests, demos).
type LedgerConfig struct {
	Provider string       `yaml:"provider"` // "stripe", "remote", "static"
	Stripe   StripeConfig `yaml:"stripe,omitempty"`
	Remote   RemoteConfig `yaml:"remote,omitempty"`
}

// StripeConfig configures the Stripe ledger backend.
type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// RemoteConfig configures a remote service endpoint.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ModelConfig describes one model in the catalog. Prices are per token.
type ModelConfig struct {
	ID             string  `yaml:"id"`
	Provider       string  `yaml:"provider"`
	Premium        bool    `yaml:"premium"`
	InputPerToken  float64 `yaml:"input_per_token"`
	OutputPerToken float64 `yaml:"output_per_token"`
}

// CachesConfig configures the process-wide verdict caches.
type CachesConfig struct {
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
	MessageTTL    time.Duration `yaml:"message_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"` // cron spec
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	CREDITMETER_DATABASE_DSN       - Database path (default: creditmeter.db)
//	CREDITMETER_SERVER_HOST        - Server host (default: 0.0.0.0)
//	CREDITMETER_SERVER_PORT        - Server port (default: 8080)
//	CREDITMETER_LEDGER_PROVIDER    - Ledger: stripe, remote, static (default: static)
//	CREDITMETER_STRIPE_SECRET_KEY  - Stripe API key when provider is stripe
//	CREDITMETER_LEDGER_REMOTE_URL  - Billing service URL when provider is remote
//	CREDITMETER_LOG_LEVEL          - Log level: debug, info, warn, error (default: info)
//	CREDITMETER_LOG_FORMAT         - Log format: json or console (default: json)
//	CREDITMETER_METRICS_ENABLED    - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables. This is the recommended method for Docker deployments.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// Default returns the built-in configuration used when nothing is provided.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// applyEnvOverrides applies CREDITMETER_* environment variables to the
// config. Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CREDITMETER_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CREDITMETER_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CREDITMETER_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("CREDITMETER_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("CREDITMETER_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CREDITMETER_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Ledger configuration
	if v := os.Getenv("CREDITMETER_LEDGER_PROVIDER"); v != "" {
		cfg.Ledger.Provider = v
	}
	if v := os.Getenv("CREDITMETER_STRIPE_SECRET_KEY"); v != "" {
		cfg.Ledger.Stripe.SecretKey = v
	}
	if v := os.Getenv("CREDITMETER_LEDGER_REMOTE_URL"); v != "" {
		cfg.Ledger.Remote.URL = v
	}
	if v := os.Getenv("CREDITMETER_LEDGER_REMOTE_API_KEY"); v != "" {
		cfg.Ledger.Remote.APIKey = v
	}
	if v := os.Getenv("CREDITMETER_LEDGER_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ledger.Remote.Timeout = d
		}
	}

	// Cache configuration
	if v := os.Getenv("CREDITMETER_CACHE_SNAPSHOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Caches.SnapshotTTL = d
		}
	}
	if v := os.Getenv("CREDITMETER_CACHE_MESSAGE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Caches.MessageTTL = d
		}
	}
	if v := os.Getenv("CREDITMETER_CACHE_SWEEP_SCHEDULE"); v != "" {
		cfg.Caches.SweepSchedule = v
	}

	// Logging configuration
	if v := os.Getenv("CREDITMETER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CREDITMETER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CREDITMETER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CREDITMETER_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "creditmeter.db"
	}

	if cfg.Ledger.Provider == "" {
		cfg.Ledger.Provider = "static"
	}
	if cfg.Ledger.Remote.Timeout == 0 {
		cfg.Ledger.Remote.Timeout = 5 * time.Second
	}

	if cfg.Caches.SnapshotTTL == 0 {
		cfg.Caches.SnapshotTTL = 60 * time.Second
	}
	if cfg.Caches.MessageTTL == 0 {
		cfg.Caches.MessageTTL = 60 * time.Second
	}
	if cfg.Caches.SweepSchedule == "" {
		cfg.Caches.SweepSchedule = "@every 5m"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	validProviders := map[string]bool{"stripe": true, "remote": true, "static": true}
	if !validProviders[cfg.Ledger.Provider] {
		return fmt.Errorf("ledger.provider must be one of: stripe, remote, static, got %q", cfg.Ledger.Provider)
	}
	if cfg.Ledger.Provider == "stripe" && cfg.Ledger.Stripe.SecretKey == "" {
		return fmt.Errorf("ledger.stripe.secret_key is required when ledger.provider is 'stripe'")
	}
	if cfg.Ledger.Provider == "remote" && cfg.Ledger.Remote.URL == "" {
		return fmt.Errorf("ledger.remote.url is required when ledger.provider is 'remote'")
	}

	if cfg.Caches.SnapshotTTL < 0 || cfg.Caches.MessageTTL < 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	for i, m := range cfg.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d].id is required", i)
		}
	}

	return nil
}
