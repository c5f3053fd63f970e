package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultPrometheusPort is the standalone metrics port of the http transport.
const DefaultPrometheusPort = 9092

// Transports supported by the server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the MCP service configuration.
type Config struct {
	// Server
	Transport string `env:"TRANSPORT" envDefault:"stdio"`
	Port      int    `env:"MCP_PORT" envDefault:"8080"`

	// Upstream
	BinanceBaseURL   string `env:"BINANCE_BASE_URL" envDefault:"https://data-api.binance.vision"`
	RequestTimeoutMS int    `env:"REQUEST_TIMEOUT_MS" envDefault:"10000"`

	// Output
	CharacterLimit int `env:"CHARACTER_LIMIT" envDefault:"25000"`

	// Redis (symbol catalog cache, optional)
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CatalogTTLSec int    `env:"CATALOG_TTL_SEC" envDefault:"300"`

	// Observability
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// Unset means DefaultPrometheusPort for http and no listener for stdio.
	PrometheusPort *int `env:"PROMETHEUS_PORT"`
}

// RequestTimeout returns the upstream timeout as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CatalogTTL returns the catalog cache TTL as a time.Duration.
func (c *Config) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLSec) * time.Second
}

// MetricsPort returns the standalone metrics listener port; 0 disables it.
// A stdio server only listens when PROMETHEUS_PORT is set.
func (c *Config) MetricsPort() int {
	if c.PrometheusPort != nil {
		return *c.PrometheusPort
	}
	if c.Transport == TransportHTTP {
		return DefaultPrometheusPort
	}
	return 0
}

// CacheEnabled reports whether a Redis URL was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// LoadFromEnv loads configuration from environment variables.
// Variables from envFile are applied first without overriding the real
// environment; a missing file is not an error.
func LoadFromEnv(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	opts := env.Options{
		Prefix: "",
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport: %s (expected stdio or http)", c.Transport)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if port := c.MetricsPort(); port < 0 || port > 65535 {
		return fmt.Errorf("invalid prometheus port: %d", port)
	}

	if c.BinanceBaseURL == "" {
		return fmt.Errorf("binance base URL must not be empty")
	}

	if c.RequestTimeoutMS < 1 {
		return fmt.Errorf("timeout must be at least 1ms, got %dms", c.RequestTimeoutMS)
	}

	if c.CharacterLimit < 1000 {
		return fmt.Errorf("character limit must be at least 1000, got %d", c.CharacterLimit)
	}

	if c.CatalogTTLSec < 1 {
		return fmt.Errorf("catalog TTL must be at least 1 second")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}
