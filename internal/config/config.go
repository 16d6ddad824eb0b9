// Package config loads application configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the application configuration.
type Config struct {
	Cache    CacheConfig    `toml:"cache"`
	Database DatabaseConfig `toml:"database"`
	Provider ProviderConfig `toml:"provider"`
	Playback PlaybackConfig `toml:"playback"`
}

// CacheConfig controls the on-disk content cache.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ProviderConfig contains the streaming API settings.
type ProviderConfig struct {
	BaseURL        string  `toml:"base_url"`
	RequestsPerSec float64 `toml:"requests_per_sec"`
}

// PlaybackConfig contains playback behavior settings.
type PlaybackConfig struct {
	// ProgressIntervalMS is how often playback position is sampled, in
	// milliseconds.
	ProgressIntervalMS int `toml:"progress_interval_ms"`
	RestorePosition    bool `toml:"restore_position"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Cache:    CacheConfig{Dir: filepath.Join(dataDir, "cache")},
		Database: DatabaseConfig{Path: filepath.Join(dataDir, "halcyon.db")},
		Provider: ProviderConfig{
			BaseURL:        "http://localhost:8080",
			RequestsPerSec: 4,
		},
		Playback: PlaybackConfig{
			ProgressIntervalMS: 500,
			RestorePosition:    true,
		},
	}
}

// Load reads and parses a TOML configuration file. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads the config at path, falling back to defaults when the
// file does not exist. Parse errors are still reported.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "halcyon")
	}
	return ".halcyon"
}
