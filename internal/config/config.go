// Package config loads and saves the application configuration from
// ~/.config/minecli/config.yml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the persisted application configuration.
type Config struct {
	// RedmineURL is the base URL of the tracker, e.g. "https://redmine.example.com".
	RedmineURL string `yaml:"redmine_url"`
	// APIKey authenticates every request.
	APIKey string `yaml:"api_key"`
	// ExcludeSubprojects limits a project's issue list to its own issues.
	ExcludeSubprojects bool `yaml:"exclude_subprojects"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFile receives log output; empty disables file logging.
	LogFile string `yaml:"log_file,omitempty"`
	// CachePath overrides the default cache database location.
	CachePath string `yaml:"cache_path,omitempty"`
}

// Default returns the configuration used before any file exists.
func Default() Config {
	return Config{ExcludeSubprojects: true, LogLevel: "info"}
}

// Path returns the config file location. MINECLI_CONFIG overrides it.
func Path() (string, error) {
	if p := os.Getenv("MINECLI_CONFIG"); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "minecli", "config.yml"), nil
}

// DefaultCachePath returns where the cache database lives unless overridden.
func DefaultCachePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "minecli", "cache.db"), nil
}

// Load reads the config file. A missing file yields the defaults, not an
// error, so first runs land on the config screen instead of failing.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config file, creating its directory if needed.
func (c Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// The API key lives in this file.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// IsConfigured reports whether the config carries enough to reach a server.
func (c Config) IsConfigured() bool {
	return c.RedmineURL != "" && c.APIKey != ""
}

// Validate checks the config for obvious mistakes.
func (c Config) Validate() error {
	if c.RedmineURL == "" {
		return fmt.Errorf("redmine_url is required")
	}
	if !strings.HasPrefix(c.RedmineURL, "http://") && !strings.HasPrefix(c.RedmineURL, "https://") {
		return fmt.Errorf("redmine_url must start with http:// or https://")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}
