package config

import (
	"os"
	"path/filepath"
)

// Default values applied before any config file, environment variable, or
// CLI flag is consulted.
const (
	DefaultRetentionDays = 30
	DefaultBatchSize     = 50
	DefaultRetryLimit    = 3
	DefaultCheckInterval = "15s"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: Storage{
			DBPath:        DefaultDBPath(),
			RetentionDays: DefaultRetentionDays,
		},
		Sync: Sync{
			BatchSize:     DefaultBatchSize,
			RetryLimit:    DefaultRetryLimit,
			CheckInterval: DefaultCheckInterval,
			Websocket:     true,
		},
		Logging: Logging{
			LogLevel:  DefaultLogLevel,
			LogFormat: DefaultLogFormat,
		},
	}
}

// DefaultConfigPath returns the default config file location:
// $XDG_CONFIG_HOME/surveysync/config.toml, falling back to
// ~/.config/surveysync/config.toml.
func DefaultConfigPath() string {
	return filepath.Join(configHome(), "surveysync", "config.toml")
}

// DefaultDBPath returns the default database location:
// $XDG_DATA_HOME/surveysync/surveys.db, falling back to
// ~/.local/share/surveysync/surveys.db.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "surveysync", "surveys.db")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "surveys.db")
	}

	return filepath.Join(home, ".local", "share", "surveysync", "surveys.db")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config")
}
