package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application. Every field can be
// overridden through a TERMBRIDGE_* environment variable.
type Config struct {
	// Server configuration
	Host         string        `default:"localhost"`
	Port         int           `default:"8080"`
	ReadTimeout  time.Duration `split_words:"true" default:"15s"`
	WriteTimeout time.Duration `split_words:"true" default:"15s"`

	// Session configuration
	Shell             string        `default:""`
	MaxSessions       int           `split_words:"true" default:"5"`
	MinCreateInterval time.Duration `split_words:"true" default:"1s"`
	KillGracePeriod   time.Duration `split_words:"true" default:"5s"`
	IdleTimeout       time.Duration `split_words:"true" default:"30m"`
	IdleSweepInterval time.Duration `split_words:"true" default:"5m"`
	HistorySize       int           `split_words:"true" default:"100"`

	// Logging configuration
	LogLevel string `split_words:"true" default:"info"`
}

// Load builds the configuration from defaults and environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("termbridge", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	if cfg.MaxSessions <= 0 {
		return nil, fmt.Errorf("max sessions must be positive, got %d", cfg.MaxSessions)
	}
	if cfg.MinCreateInterval < 0 {
		return nil, fmt.Errorf("min create interval must not be negative, got %s", cfg.MinCreateInterval)
	}

	return &cfg, nil
}

// Address returns the full server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetupLogging configures the global logger based on configuration
func (c *Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %v", c.LogLevel, err)
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	return nil
}
