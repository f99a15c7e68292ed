package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazz-dev/statuswatch/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.yml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTemp(t, `
server:
  address: ":9090"
  cors_origins: ["https://console.example.com"]
  qa: true
storage:
  driver: "sqlite"
  path: "test.db"
refresh:
  schedule: "@every 1m"
  on_start: true
  concurrency: 8
alerts:
  log: false
  webhook:
    url: "https://hooks.example.com/alert"
    timeout: "3s"
auth:
  jwt_secret: "s3cret"
  issuer: "https://issuer.example.com"
logging:
  level: "debug"
  format: "json"
  file: "logs/statuswatch.log"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("expected address ':9090', got %q", cfg.Server.Address)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://console.example.com" {
		t.Errorf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Server.QA {
		t.Error("expected qa enabled")
	}
	if cfg.Storage.Path != "test.db" {
		t.Errorf("expected storage path 'test.db', got %q", cfg.Storage.Path)
	}
	if cfg.Refresh.Schedule != "@every 1m" || !cfg.Refresh.OnStart || cfg.Refresh.Concurrency != 8 {
		t.Errorf("unexpected refresh config %+v", cfg.Refresh)
	}
	if cfg.Alerts.LogEnabled() {
		t.Error("expected log alerts disabled")
	}
	if cfg.Alerts.Webhook.Timeout.Duration != 3*time.Second {
		t.Errorf("expected webhook timeout 3s, got %v", cfg.Alerts.Webhook.Timeout.Duration)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Auth.Issuer != "https://issuer.example.com" {
		t.Errorf("unexpected auth config %+v", cfg.Auth)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.File != "logs/statuswatch.log" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.JWTSecretEnv, "")
	path := writeTemp(t, "{}\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address ':8080', got %q", cfg.Server.Address)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("expected wildcard cors origin, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "statuswatch.db" {
		t.Errorf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Refresh.Schedule != "" {
		t.Errorf("expected scheduler disabled by default, got %q", cfg.Refresh.Schedule)
	}
	if !cfg.Alerts.LogEnabled() {
		t.Error("expected log alerts enabled by default")
	}
	if cfg.Alerts.Webhook.Timeout.Duration != 10*time.Second {
		t.Errorf("expected default webhook timeout 10s, got %v", cfg.Alerts.Webhook.Timeout.Duration)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 5 || cfg.Logging.MaxAgeDays != 14 {
		t.Errorf("unexpected rotation defaults %+v", cfg.Logging)
	}
}

func TestLoad_JWTSecretFromEnv(t *testing.T) {
	t.Setenv(config.JWTSecretEnv, "from-env")
	cfg, err := config.Load(writeTemp(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("expected secret from env, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"driver", "storage:\n  driver: \"postgres\"\n", "invalid driver"},
		{"schedule", "refresh:\n  schedule: \"every so often\"\n", "invalid schedule"},
		{"concurrency", "refresh:\n  concurrency: -1\n", "concurrency"},
		{"level", "logging:\n  level: \"loud\"\n", "invalid level"},
		{"format", "logging:\n  format: \"xml\"\n", "invalid format"},
		{"timeout", "alerts:\n  webhook:\n    timeout: \"soon\"\n", "parsing config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeTemp(t, tc.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := config.Load(writeTemp(t, "server: [unclosed\n"))
	if err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
