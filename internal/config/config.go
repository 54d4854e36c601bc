// Package config provides configuration management for qst-track.
package config

import (
	"time"
)

// Config is the root configuration structure for qst-track.
type Config struct {
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Transport TransportConfig `mapstructure:"transport"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Flush     FlushConfig     `mapstructure:"flush"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TrackingConfig holds the reporting manager options.
type TrackingConfig struct {
	// Collection endpoint the beacons are sent to
	URL string `mapstructure:"url"`

	// Deployment source: saas or local
	Source string `mapstructure:"source"`

	// Which prefix user ids get: CustomerId or MemberId
	UserIDType string `mapstructure:"user_id_type"`

	// Raw id of the logged in user (empty when anonymous)
	UserID string `mapstructure:"user_id"`

	// Page address attached to events when the caller does not supply one
	Location string `mapstructure:"location"`

	// Query parameter carrying the payload
	QueryName string `mapstructure:"query_name"`

	// Delay before a failed beacon is retried
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// Retries after the first attempt before events are persisted
	RetryLimit int `mapstructure:"retry_limit"`

	// Double the delay after every failed retry
	ExponentialBackoff bool `mapstructure:"exponential_backoff"`

	// Go time layout for the local_time field
	TimeLayout string `mapstructure:"time_layout"`
}

// TransportConfig holds HTTP beacon settings.
type TransportConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// StorageConfig selects where undelivered events are kept.
type StorageConfig struct {
	// Storage driver (memory or sqlite)
	Driver string `mapstructure:"driver"`

	// Blob compression (none, gzip or zstd)
	Compression string `mapstructure:"compression"`
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string `mapstructure:"path"`

	// Enable WAL mode (recommended)
	WALMode bool `mapstructure:"wal_mode"`

	// Busy timeout
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// Maximum open connections
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// Maximum idle connections
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// FlushConfig controls periodic draining of the persisted queue.
type FlushConfig struct {
	// Enable the scheduled flush
	Enabled bool `mapstructure:"enabled"`

	// Cron expression or descriptor (e.g. "@every 5m")
	Schedule string `mapstructure:"schedule"`

	// IANA zone wall-clock schedules fire in ("Local" for the host zone)
	Timezone string `mapstructure:"timezone"`

	// Flush once when the process starts
	OnStart bool `mapstructure:"on_start"`
}

// MetricsConfig holds Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`

	// Include caller info
	Caller bool `mapstructure:"caller"`

	// Include timestamp
	Timestamp bool `mapstructure:"timestamp"`
}
