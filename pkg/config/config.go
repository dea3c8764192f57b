package config

import "time"

// Config is the root configuration for the engine.
type Config struct {
	// Server configures the HTTP endpoint serving metrics and health.
	Server ServerConfig `yaml:"server"`

	// Storage configures instance and event persistence.
	Storage StorageConfig `yaml:"storage"`

	// Scheduler configures the periodic escalation tick.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Sources configures where decision tables and SLA definitions are
	// loaded from.
	Sources SourcesConfig `yaml:"sources"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the host:port the server binds to.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// Backend selects the storage backend ("sqlite" or "memory").
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// SchedulerConfig contains escalation tick settings.
type SchedulerConfig struct {
	// Schedule is the cron expression for the periodic tick.
	Schedule string `yaml:"schedule"`

	// Workers is the number of concurrent tick workers.
	Workers int `yaml:"workers"`
}

// SourcesConfig contains table and definition source settings.
type SourcesConfig struct {
	// Tables configures the decision table source.
	Tables TableSourceConfig `yaml:"tables"`

	// Definitions configures the SLA definition source.
	Definitions DefinitionSourceConfig `yaml:"definitions"`
}

// TableSourceConfig contains decision table source settings.
type TableSourceConfig struct {
	// Path is the YAML file or directory holding decision tables.
	Path string `yaml:"path"`

	// Watch enables hot reload on file changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file change notifications.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// DefinitionSourceConfig contains SLA definition source settings.
type DefinitionSourceConfig struct {
	// Path is the YAML file or directory holding SLA definitions.
	Path string `yaml:"path"`
}

// TelemetryConfig contains logging and metrics settings.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled toggles metric recording.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace prefix.
	Namespace string `yaml:"namespace"`

	// Path is the HTTP path the exposition handler is mounted at.
	Path string `yaml:"path"`
}
