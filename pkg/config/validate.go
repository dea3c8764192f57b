package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q (want \"sqlite\" or \"memory\")", cfg.Storage.Backend)
	}

	if cfg.Scheduler.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler.schedule %q: %w", cfg.Scheduler.Schedule, err)
		}
	}
	if cfg.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler.workers must not be negative")
	}

	if cfg.Sources.Tables.Watch && cfg.Sources.Tables.Path == "" {
		return fmt.Errorf("sources.tables.watch requires sources.tables.path")
	}

	switch cfg.Telemetry.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown telemetry.logging.level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown telemetry.logging.format %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
