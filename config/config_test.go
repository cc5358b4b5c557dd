package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gatewaylabs/creditmeter/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creditmeter.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
database:
  driver: sqlite
  dsn: /tmp/meter.db
ledger:
  provider: remote
  remote:
    url: https://billing.internal
    api_key: rk_test
    timeout: 2s
caches:
  snapshot_ttl: 30s
  message_ttl: 90s
  sweep_schedule: "@every 1m"
models:
  - id: anthropic/claude-x
    provider: anthropic
    premium: true
    input_per_token: 0.00012
    output_per_token: 0.00004
logging:
  level: debug
  format: console
metrics:
  enabled: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.DSN != "/tmp/meter.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Ledger.Provider != "remote" || cfg.Ledger.Remote.URL != "https://billing.internal" {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if cfg.Ledger.Remote.Timeout != 2*time.Second {
		t.Errorf("remote timeout = %v", cfg.Ledger.Remote.Timeout)
	}
	if cfg.Caches.SnapshotTTL != 30*time.Second || cfg.Caches.MessageTTL != 90*time.Second {
		t.Errorf("caches = %+v", cfg.Caches)
	}
	if len(cfg.Models) != 1 || !cfg.Models[0].Premium {
		t.Errorf("models = %+v", cfg.Models)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, `
ledger:
  provider: static
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "creditmeter.db" {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if cfg.Caches.SnapshotTTL != 60*time.Second {
		t.Errorf("snapshot ttl default = %v", cfg.Caches.SnapshotTTL)
	}
	if cfg.Caches.SweepSchedule != "@every 5m" {
		t.Errorf("sweep schedule default = %q", cfg.Caches.SweepSchedule)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics path default = %q", cfg.Metrics.Path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	t.Setenv("CREDITMETER_SERVER_PORT", "7070")
	t.Setenv("CREDITMETER_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, env must override the file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnvInFile(t *testing.T) {
	t.Setenv("METER_TEST_KEY", "rk_expanded")
	path := writeConfig(t, `
ledger:
  provider: remote
  remote:
    url: https://billing.internal
    api_key: ${METER_TEST_KEY}
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ledger.Remote.APIKey != "rk_expanded" {
		t.Errorf("api key = %q, want the expanded env value", cfg.Ledger.Remote.APIKey)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown ledger provider", "ledger:\n  provider: ripple\n"},
		{"stripe without key", "ledger:\n  provider: stripe\n"},
		{"remote without url", "ledger:\n  provider: remote\n"},
		{"non-sqlite driver", "database:\n  driver: postgres\n"},
		{"model without id", "models:\n  - provider: openai\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := config.Load(path); err == nil {
				t.Error("Load accepted an invalid config")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CREDITMETER_DATABASE_DSN", "/data/meter.db")
	t.Setenv("CREDITMETER_LEDGER_PROVIDER", "stripe")
	t.Setenv("CREDITMETER_STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("CREDITMETER_METRICS_ENABLED", "yes")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Database.DSN != "/data/meter.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Ledger.Provider != "stripe" || cfg.Ledger.Stripe.SecretKey != "sk_test" {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics not enabled by CREDITMETER_METRICS_ENABLED=yes")
	}
}

func TestLoadWithFallback_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("CREDITMETER_SERVER_PORT", "6060")

	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load with fallback: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("port = %d, want the env fallback 6060", cfg.Server.Port)
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	if cfg.Ledger.Provider != "static" {
		t.Errorf("default ledger provider = %q", cfg.Ledger.Provider)
	}
	if cfg.Server.ReadTimeout != 30*time.Second || cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("default timeouts = %+v", cfg.Server)
	}
}
