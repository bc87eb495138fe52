// Package config provides configuration management for the paper scroll service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the paper scroll service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Storage contains file-backed storage settings.
	Storage StorageConfig `mapstructure:"storage"`
	// Catalog contains Crossref catalog API settings.
	Catalog CatalogConfig `mapstructure:"catalog"`
	// Works contains OpenAlex works API settings.
	Works WorksConfig `mapstructure:"works"`
	// Feed contains prefetch buffer retry settings.
	Feed FeedConfig `mapstructure:"feed"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response. It must
	// leave room for the sync progress stream, which stays open until the
	// sync finishes.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// StorageConfig holds file-backed storage configuration.
type StorageConfig struct {
	// Root is the directory holding the settings file, journal snapshots
	// and starred papers.
	Root string `mapstructure:"root"`
}

// CatalogConfig holds Crossref catalog API configuration.
type CatalogConfig struct {
	// BaseURL is the catalog API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Rows is the page size for works listings.
	Rows int `mapstructure:"rows"`
	// PageDelay is the pause between successive pages of one listing.
	PageDelay time.Duration `mapstructure:"page_delay"`
	// Timeout is the timeout for API calls. Deep cursor pages can be slow,
	// so this is generous.
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent identifies the service to the catalog.
	UserAgent string `mapstructure:"user_agent"`
}

// WorksConfig holds OpenAlex works API configuration.
type WorksConfig struct {
	// BaseURL is the works API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size"`
}

// FeedConfig holds prefetch buffer retry configuration.
type FeedConfig struct {
	// MaxAttempts is the number of random draws before a single paper
	// request gives up.
	MaxAttempts int `mapstructure:"max_attempts"`
	// InitialBackoff is the delay after the first failed draw.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// MaxBackoff caps the exponential delay between draws.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAPERSCROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-scroll-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Storage defaults
	v.SetDefault("storage.root", "data")

	// Catalog defaults
	v.SetDefault("catalog.base_url", "https://api.crossref.org")
	v.SetDefault("catalog.rows", 200)
	v.SetDefault("catalog.page_delay", "500ms")
	v.SetDefault("catalog.timeout", "100s")
	v.SetDefault("catalog.user_agent", "PaperScroll/1.0")

	// Works defaults
	v.SetDefault("works.base_url", "https://api.openalex.org")
	v.SetDefault("works.timeout", "30s")
	v.SetDefault("works.rate_limit", 10.0)
	v.SetDefault("works.burst_size", 10)

	// Feed defaults
	v.SetDefault("feed.max_attempts", 25)
	v.SetDefault("feed.initial_backoff", "500ms")
	v.SetDefault("feed.max_backoff", "15s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate storage config
	if c.Storage.Root == "" {
		return fmt.Errorf("storage root is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate catalog config
	if c.Catalog.Rows <= 0 || c.Catalog.Rows > 1000 {
		return fmt.Errorf("catalog rows must be between 1 and 1000, got %d", c.Catalog.Rows)
	}
	if c.Catalog.PageDelay < 0 {
		return fmt.Errorf("catalog page delay must not be negative")
	}

	// Validate works config
	if c.Works.RateLimit <= 0 {
		return fmt.Errorf("works rate limit must be positive")
	}
	if c.Works.BurstSize <= 0 {
		return fmt.Errorf("works burst size must be positive")
	}

	// Validate feed config
	if c.Feed.MaxAttempts <= 0 {
		return fmt.Errorf("feed max_attempts must be positive")
	}
	if c.Feed.InitialBackoff <= 0 || c.Feed.MaxBackoff < c.Feed.InitialBackoff {
		return fmt.Errorf("feed backoff window is invalid: initial %s, max %s",
			c.Feed.InitialBackoff, c.Feed.MaxBackoff)
	}

	return nil
}
