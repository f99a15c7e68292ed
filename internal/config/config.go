package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"cors_origins"`
	// QA mounts the simulated-outcome handler used to exercise probes.
	QA bool `yaml:"qa"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// RefreshConfig controls the scheduled refresh of every endpoint.
type RefreshConfig struct {
	// Schedule is a cron expression or descriptor such as "@every 5m".
	// Empty disables the scheduler.
	Schedule    string `yaml:"schedule"`
	OnStart     bool   `yaml:"on_start"`
	Concurrency int    `yaml:"concurrency"`
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Log     *bool         `yaml:"log"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// LogEnabled reports whether unhealthy endpoints are logged. Defaults to true.
func (a AlertsConfig) LogEnabled() bool {
	return a.Log == nil || *a.Log
}

// AuthConfig holds the bearer token validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables rotating file output instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Refresh RefreshConfig `yaml:"refresh"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// JWTSecretEnv is consulted when auth.jwt_secret is empty.
const JWTSecretEnv = "STATUSWATCH_JWT_SECRET"

var (
	validDrivers = map[string]bool{"sqlite": true, "memory": true}
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "statuswatch.db"
	}
	if c.Alerts.Webhook.Timeout.Duration == 0 {
		c.Alerts.Webhook.Timeout = Duration{10 * time.Second}
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv(JWTSecretEnv)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 14
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("storage: invalid driver %q (must be sqlite or memory)", c.Storage.Driver)
	}
	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("refresh: invalid schedule %q: %w", c.Refresh.Schedule, err)
		}
	}
	if c.Refresh.Concurrency < 0 {
		return fmt.Errorf("refresh: concurrency must not be negative, got %d", c.Refresh.Concurrency)
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging: invalid level %q (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging: invalid format %q (must be text or json)", c.Logging.Format)
	}
	return nil
}
