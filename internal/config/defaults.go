package config

import "time"

// Default configuration values.
const (
	// Tracking defaults.
	DefaultSource     = "saas"
	DefaultUserIDType = "CustomerId"
	DefaultQueryName  = "payload"
	DefaultRetryDelay = 10 * time.Second
	DefaultRetryLimit = 5
	DefaultTimeLayout = "2006/1/2 15:04:05"

	// Transport defaults.
	DefaultTransportTimeout = 10 * time.Second
	DefaultUserAgent        = "qst-track/0.1"

	// Storage defaults.
	DefaultStorageDriver = "sqlite"
	DefaultCompression   = "none"

	// Database defaults.
	DefaultDBPath       = "qst-track.db"
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1 // SQLite works best with single writer
	DefaultMaxIdleConns = 1

	// Flush defaults.
	DefaultFlushSchedule = "@every 5m"
	DefaultFlushTimezone = "Local"

	// Metrics defaults.
	DefaultMetricsAddress = "127.0.0.1:9464"
	DefaultMetricsPath    = "/metrics"

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Tracking: TrackingConfig{
			Source:     DefaultSource,
			UserIDType: DefaultUserIDType,
			QueryName:  DefaultQueryName,
			RetryDelay: DefaultRetryDelay,
			RetryLimit: DefaultRetryLimit,
			TimeLayout: DefaultTimeLayout,
		},
		Transport: TransportConfig{
			Timeout:   DefaultTransportTimeout,
			UserAgent: DefaultUserAgent,
		},
		Storage: StorageConfig{
			Driver:      DefaultStorageDriver,
			Compression: DefaultCompression,
		},
		Database: DatabaseConfig{
			Path:         DefaultDBPath,
			WALMode:      true,
			BusyTimeout:  DefaultBusyTimeout,
			MaxOpenConns: DefaultMaxOpenConns,
			MaxIdleConns: DefaultMaxIdleConns,
		},
		Flush: FlushConfig{
			Enabled:  true,
			Schedule: DefaultFlushSchedule,
			Timezone: DefaultFlushTimezone,
			OnStart:  true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: DefaultMetricsAddress,
			Path:    DefaultMetricsPath,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Caller:    false,
			Timestamp: true,
		},
	}
}
