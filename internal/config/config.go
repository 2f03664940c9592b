// Package config loads service configuration from defaults, an optional
// YAML or JSON file and FIGHTPICK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full service configuration
type Config struct {
	Environment string        `koanf:"environment"`
	LogLevel    string        `koanf:"log_level"`
	HTTPAddr    string        `koanf:"http_addr"`
	GRPCAddr    string        `koanf:"grpc_addr"`
	Locale      string        `koanf:"locale"` // forces the results locale when set
	SessionTTL  time.Duration `koanf:"session_ttl"`
	SubmitDelay time.Duration `koanf:"submit_delay"`

	DB         DBConfig         `koanf:"db"`
	Events     EventsConfig     `koanf:"events"`
	ClickHouse ClickHouseConfig `koanf:"clickhouse"`
}

// DBConfig selects the prediction store
type DBConfig struct {
	Driver     string `koanf:"driver"`
	SQLiteFile string `koanf:"sqlite_file"`
	URL        string `koanf:"url"`
	SeedDemo   bool   `koanf:"seed_demo"`
}

// EventsConfig selects the event bus
type EventsConfig struct {
	Backend string `koanf:"backend"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
	Stream  string `koanf:"stream"`
}

// ClickHouseConfig locates the analytics database
type ClickHouseConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Defaults returns the development configuration
func Defaults() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		HTTPAddr:    ":8080",
		GRPCAddr:    ":9090",
		SessionTTL:  24 * time.Hour,
		SubmitDelay: 1500 * time.Millisecond,
		DB: DBConfig{
			Driver:     "memory",
			SQLiteFile: "dev.sqlite",
			SeedDemo:   true,
		},
		Events: EventsConfig{
			Backend: "memory",
			Subject: "predictions.events",
			Stream:  "PREDICTION_EVENTS",
		},
		ClickHouse: ClickHouseConfig{
			Addr:     "localhost:9000",
			Database: "default",
			Username: "default",
		},
	}
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the combination of settings
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty: %w", ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s: %w", c.SessionTTL, ErrInvalidConfig)
	}
	if c.SubmitDelay < 0 {
		return fmt.Errorf("submit_delay must not be negative: %w", ErrInvalidConfig)
	}

	switch c.DB.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for the postgres driver: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("db.driver %q (valid: memory, sqlite, postgres): %w", c.DB.Driver, ErrInvalidConfig)
	}

	switch c.Events.Backend {
	case "memory", "embedded":
	case "nats":
		if c.Events.URL == "" {
			return fmt.Errorf("events.url is required for the nats backend: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("events.backend %q (valid: memory, embedded, nats): %w", c.Events.Backend, ErrInvalidConfig)
	}

	if c.ClickHouse.Enabled && c.ClickHouse.Addr == "" {
		return fmt.Errorf("clickhouse.addr is required when clickhouse is enabled: %w", ErrInvalidConfig)
	}
	return nil
}
