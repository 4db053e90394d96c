package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the cockpit.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Polling  PollingConfig
	Stages   StagesConfig
	Export   ExportConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port          int
	Env           string
	LogLevel      string
	APIKeyHash    string
	RunsPerMinute int
}

type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	DemoEmail    string
	DemoPassword string
}

type PollingConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

type StagesConfig struct {
	Interval time.Duration
}

type ExportConfig struct {
	Dir    string
	Format string
}

// DatabaseConfig is optional; an empty URL disables the run ledger.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

// RedisConfig is optional; an empty URL selects the in-process cache.
type RedisConfig struct {
	URL string
}

var validExportFormats = map[string]bool{
	"markdown": true,
	"json":     true,
	"pdf":      true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          envInt("COCKPIT_PORT", 8090),
			Env:           envString("COCKPIT_ENV", "development"),
			LogLevel:      strings.ToLower(envString("COCKPIT_LOG_LEVEL", "info")),
			APIKeyHash:    os.Getenv("COCKPIT_API_KEY_HASH"),
			RunsPerMinute: envInt("COCKPIT_RUNS_PER_MINUTE", 10),
		},
		Backend: BackendConfig{
			BaseURL:      strings.TrimRight(envString("COCKPIT_API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
			Timeout:      envDuration("COCKPIT_API_TIMEOUT", 30*time.Second),
			DemoEmail:    envString("COCKPIT_DEMO_EMAIL", "admin@ghostwriter.dev"),
			DemoPassword: envString("COCKPIT_DEMO_PASSWORD", "ChangeMe123!"),
		},
		Polling: PollingConfig{
			Interval:    envDuration("COCKPIT_POLL_INTERVAL", 1200*time.Millisecond),
			MaxAttempts: envInt("COCKPIT_POLL_MAX_ATTEMPTS", 80),
		},
		Stages: StagesConfig{
			Interval: envDuration("COCKPIT_STAGE_INTERVAL", 1100*time.Millisecond),
		},
		Export: ExportConfig{
			Dir:    envString("COCKPIT_EXPORT_DIR", "."),
			Format: envString("COCKPIT_EXPORT_FORMAT", "markdown"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values. It is called again after flag overrides.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("COCKPIT_API_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("COCKPIT_API_BASE_URL must start with http:// or https://, got %q", c.Backend.BaseURL)
	}
	if c.Backend.DemoEmail == "" || c.Backend.DemoPassword == "" {
		return fmt.Errorf("COCKPIT_DEMO_EMAIL and COCKPIT_DEMO_PASSWORD must not be empty")
	}

	if c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("COCKPIT_POLL_MAX_ATTEMPTS must be positive, got %d", c.Polling.MaxAttempts)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("COCKPIT_POLL_INTERVAL must be positive, got %s", c.Polling.Interval)
	}
	if c.Stages.Interval <= 0 {
		return fmt.Errorf("COCKPIT_STAGE_INTERVAL must be positive, got %s", c.Stages.Interval)
	}

	if !validExportFormats[c.Export.Format] {
		return fmt.Errorf("COCKPIT_EXPORT_FORMAT must be one of markdown, json, pdf; got %q", c.Export.Format)
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("COCKPIT_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if c.Database.URL != "" && !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must be a postgres:// URL")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
