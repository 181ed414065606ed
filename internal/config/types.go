// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogfmt = "logfmt"

	// DefaultCatalogURL is the public SMAPI web API.
	DefaultCatalogURL = "https://smapi.io/api"
	// DefaultSearchURL is the fallback page for dependencies without a download link.
	DefaultSearchURL = "https://smapi.io/mods"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type (
	// Config is the application configuration.
	Config struct {
		Game    GameConfig    `json:"game" mapstructure:"game"`
		Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`
		State   StateConfig   `json:"state" mapstructure:"state"`
		Log     LogConfig     `json:"log" mapstructure:"log"`
	}

	// GameConfig locates the game install.
	GameConfig struct {
		Path    string `json:"path" mapstructure:"path"`
		Version string `json:"version" mapstructure:"version"`
		ModsDir string `json:"mods_dir" mapstructure:"mods_dir"`
		LogPath string `json:"log_path" mapstructure:"log_path"`
	}

	// CatalogConfig configures the remote mod catalog client.
	CatalogConfig struct {
		BaseURL           string        `json:"base_url" mapstructure:"base_url"`
		SearchURL         string        `json:"search_url" mapstructure:"search_url"`
		UserAgent         string        `json:"user_agent" mapstructure:"user_agent"`
		Timeout           time.Duration `json:"timeout" mapstructure:"timeout"`
		RequestsPerMinute int           `json:"requests_per_minute" mapstructure:"requests_per_minute"`
	}

	// StateConfig locates the installed-mods state file.
	StateConfig struct {
		Path string `json:"path" mapstructure:"path"`
	}

	// LogConfig controls the logger.
	LogConfig struct {
		Level      string `json:"level" mapstructure:"level"`
		Format     string `json:"format" mapstructure:"format"`
		File       string `json:"file" mapstructure:"file"`
		MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
		MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{ModsDir: "Mods"},
		Catalog: CatalogConfig{
			BaseURL:           DefaultCatalogURL,
			SearchURL:         DefaultSearchURL,
			UserAgent:         AppName,
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
		},
		Log: LogConfig{
			Level:      LogLevelInfo,
			Format:     LogFormatText,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Validate checks constraints that survive environment overrides, which
// bypass the CUE schema.
func (c *Config) Validate() error {
	if !slices.Contains([]string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}, c.Log.Level) {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	if !slices.Contains([]string{LogFormatText, LogFormatJSON, LogFormatLogfmt}, c.Log.Format) {
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("%w: catalog.timeout must be positive", ErrInvalidConfig)
	}
	if c.Catalog.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: catalog.requests_per_minute must not be negative", ErrInvalidConfig)
	}
	return nil
}
