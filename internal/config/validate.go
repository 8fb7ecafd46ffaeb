package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validate checks a resolved Config for values that would misbehave at
// runtime. All violations are reported, not just the first.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Backend.URL != "" {
		u, err := url.Parse(cfg.Backend.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend.url %q is not an absolute URL", cfg.Backend.URL))
		}
	}

	if cfg.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path must not be empty"))
	}

	if cfg.Storage.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("storage.retention_days must not be negative, got %d", cfg.Storage.RetentionDays))
	}

	if cfg.Sync.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("sync.batch_size must be positive, got %d", cfg.Sync.BatchSize))
	}

	if cfg.Sync.RetryLimit <= 0 {
		errs = append(errs, fmt.Errorf("sync.retry_limit must be positive, got %d", cfg.Sync.RetryLimit))
	}

	if cfg.Sync.CheckInterval != "" {
		if _, err := time.ParseDuration(cfg.Sync.CheckInterval); err != nil {
			errs = append(errs, fmt.Errorf("sync.check_interval %q is not a duration: %w", cfg.Sync.CheckInterval, err))
		}
	}

	switch cfg.Logging.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.log_level %q is not one of debug, info, warn, error", cfg.Logging.LogLevel))
	}

	switch cfg.Logging.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.log_format %q is not one of text, json", cfg.Logging.LogFormat))
	}

	return errors.Join(errs...)
}

// CheckInterval returns the parsed probe interval. Call after Validate.
func (c *Config) CheckInterval() time.Duration {
	d, err := time.ParseDuration(c.Sync.CheckInterval)
	if err != nil {
		d, _ = time.ParseDuration(DefaultCheckInterval)
	}

	return d
}
