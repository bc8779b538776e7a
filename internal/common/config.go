// Package common provides shared utilities for histcache
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for histcache
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Provider  ProviderConfig  `toml:"provider"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StorageConfig holds cache store configuration.
type StorageConfig struct {
	Path string `toml:"path"` // directory holding per-symbol CSV files
}

// ProviderConfig holds remote series provider configuration.
type ProviderConfig struct {
	BaseURL    string `toml:"base_url"`
	RateLimit  int    `toml:"rate_limit"` // requests per second
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ReconcileConfig holds reconciliation engine configuration.
type ReconcileConfig struct {
	// Tolerance is the absolute epsilon for adjusted-close spot validation.
	Tolerance float64 `toml:"tolerance"`
	// Concurrency caps how many symbols reconcile in parallel in a batch.
	Concurrency int `toml:"concurrency"`
	// CalendarWindowDays bounds the trading-day look-around search.
	CalendarWindowDays int `toml:"calendar_window_days"`
}

// ScheduleConfig holds the watch-mode refresh schedule.
type ScheduleConfig struct {
	Cron    string   `toml:"cron"` // cron expression, e.g. "0 30 18 * * 1-5"
	Symbols []string `toml:"symbols"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "data",
		},
		Provider: ProviderConfig{
			BaseURL:    "https://query1.finance.yahoo.com",
			RateLimit:  5,
			Timeout:    "30s",
			MaxRetries: 3,
		},
		Reconcile: ReconcileConfig{
			Tolerance:          1e-6,
			Concurrency:        4,
			CalendarWindowDays: 7,
		},
		Schedule: ScheduleConfig{
			Cron: "0 30 18 * * 1-5", // weekday evenings, after US close
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if path := os.Getenv("HISTCACHE_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if url := os.Getenv("HISTCACHE_PROVIDER_URL"); url != "" {
		config.Provider.BaseURL = url
	}

	if level := os.Getenv("HISTCACHE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("HISTCACHE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Reconcile.Concurrency = n
		}
	}

	if v := os.Getenv("HISTCACHE_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			config.Reconcile.Tolerance = f
		}
	}
}
