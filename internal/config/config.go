// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Convert ConvertConfig
	Storage StorageConfig
	History HistoryConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, downloads can be large)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honored (default: none)
	TrustedProxies []string `env:"TRUSTED_PROXY_CIDRS"`
}

// ConvertConfig holds conversion processing settings.
type ConvertConfig struct {
	// Workers is the file-processing pool size per run (default: 4)
	Workers int `env:"CONVERT_WORKERS" default:"4"`

	// BatchSize is the number of rows buffered before a CSV flush (default: 10000)
	BatchSize int `env:"CONVERT_BATCH_SIZE" default:"10000"`

	// MaxUploadSize is the maximum total upload size in bytes (default: 500MB)
	MaxUploadSize int64 `env:"CONVERT_MAX_UPLOAD_SIZE" default:"524288000"`

	// MaxConcurrent is the maximum number of parallel conversion tasks (default: 3)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" default:"30s"`

	// TaskTTL is how long completed tasks remain pollable (default: 1h)
	TaskTTL time.Duration `env:"CONVERT_TASK_TTL" default:"1h"`
}

// StorageConfig holds file staging settings.
type StorageConfig struct {
	// UploadDir is where uploaded JSON files are staged (default: uploads)
	UploadDir string `env:"UPLOAD_DIR" default:"uploads"`

	// OutputDir is where generated CSV files are written (default: outputs)
	OutputDir string `env:"OUTPUT_DIR" default:"outputs"`
}

// HistoryConfig holds the optional conversion-history database settings.
type HistoryConfig struct {
	// URL is the PostgreSQL connection string. History recording is
	// disabled when unset.
	URL string `env:"HISTORY_DATABASE_URL" envAlt:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"HISTORY_DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"HISTORY_DB_MIN_CONNS" default:"0"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// HistoryEnabled reports whether a history database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.History.URL != ""
}
