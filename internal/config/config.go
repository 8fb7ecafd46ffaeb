// Package config implements TOML configuration loading, validation, and
// default path resolution for surveysync. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Backend Backend `toml:"backend"`
	Storage Storage `toml:"storage"`
	Sync    Sync    `toml:"sync"`
	Import  Import  `toml:"import"`
	Logging Logging `toml:"logging"`
}

// Backend identifies the hosted survey backend and the credential used
// against it.
type Backend struct {
	URL        string `toml:"url"`
	ServiceKey string `toml:"service_key"`
}

// Storage controls the local database and its retention policy.
type Storage struct {
	DBPath        string `toml:"db_path"`
	RetentionDays int    `toml:"retention_days"`
}

// Sync controls queue processing and the connectivity probe.
type Sync struct {
	BatchSize     int    `toml:"batch_size"`
	RetryLimit    int    `toml:"retry_limit"`
	CheckInterval string `toml:"check_interval"`
	Websocket     bool   `toml:"websocket"`
}

// Import controls the CSV utility importer.
type Import struct {
	WatchDir string `toml:"watch_dir"`
}

// Logging controls log output behavior.
type Logging struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath    string // --config flag (empty = use default)
	BackendURL    *string
	ServiceKey    *string
	DBPath        *string
	RetentionDays *int
	LogLevel      *string
}
