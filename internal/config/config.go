// Package config provides configuration management for ndash using Viper.
// It supports configuration from files, environment variables, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultBufferSize          = ByteSize(10 * 1024 * 1024)
	defaultRefreshInterval     = 5 * time.Second
	defaultRetryDelayUnit      = time.Second
	defaultRetryDelayCap       = 5 * time.Second
	defaultMeterMaxWeight      = 20000
	defaultStatusAddr          = "127.0.0.1:8080"
	defaultStatusTimeout       = 10 * time.Second
	defaultUserAgent           = "ndash/1.0"
)

// Config holds all configuration for the engine.
type Config struct {
	Manifest  ManifestConfig  `mapstructure:"manifest"`
	Source    SourceConfig    `mapstructure:"source"`
	Bandwidth BandwidthConfig `mapstructure:"bandwidth"`
	License   LicenseConfig   `mapstructure:"license"`
	Status    StatusConfig    `mapstructure:"status"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ManifestConfig holds manifest fetcher configuration.
type ManifestConfig struct {
	// URI is the MPD document to stream.
	URI string `mapstructure:"uri"`
	// RefreshInterval is how often the watch loop requests a refresh for
	// dynamic presentations.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// RetryDelayUnit and RetryDelayCap shape the failure backoff: the gap
	// after the n-th consecutive error is min((n-1)*unit, cap).
	RetryDelayUnit time.Duration `mapstructure:"retry_delay_unit"`
	RetryDelayCap  time.Duration `mapstructure:"retry_delay_cap"`
}

// SourceConfig holds HTTP data source configuration.
type SourceConfig struct {
	// BufferSize bounds the data source's internal FIFO. Supports
	// human-readable values like "10MiB" or raw byte counts.
	BufferSize ByteSize `mapstructure:"buffer_size"`
	UserAgent  string   `mapstructure:"user_agent"`
	// GlobalLock makes every data source built with it set share one
	// process-wide transfer lock, so at most one such transfer runs at a
	// time, for deterministic bandwidth measurement.
	GlobalLock bool `mapstructure:"global_lock"`
}

// BandwidthConfig holds bandwidth meter configuration.
type BandwidthConfig struct {
	// MaxWeight bounds the sliding-median averager's tracked weight.
	MaxWeight uint64 `mapstructure:"max_weight"`
}

// LicenseConfig holds license fetcher configuration.
type LicenseConfig struct {
	ServerURI string `mapstructure:"server_uri"`
	AuthToken string `mapstructure:"auth_token"`
}

// StatusConfig holds the debug status server configuration.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// SetDefaults registers default values on v so partial configuration
// files and environment overrides work.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("manifest.refresh_interval", defaultRefreshInterval)
	v.SetDefault("manifest.retry_delay_unit", defaultRetryDelayUnit)
	v.SetDefault("manifest.retry_delay_cap", defaultRetryDelayCap)
	v.SetDefault("source.buffer_size", int64(defaultBufferSize))
	v.SetDefault("source.user_agent", defaultUserAgent)
	v.SetDefault("source.global_lock", false)
	v.SetDefault("bandwidth.max_weight", defaultMeterMaxWeight)
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", defaultStatusAddr)
	v.SetDefault("status.timeout", defaultStatusTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field-level invariants.
func (c *Config) Validate() error {
	if c.Source.BufferSize < 0 {
		return errors.New("source.buffer_size must not be negative")
	}
	if c.Manifest.RetryDelayUnit < 0 || c.Manifest.RetryDelayCap < 0 {
		return errors.New("manifest retry delays must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
