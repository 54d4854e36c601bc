package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Mutueye/qst-tracking-monorepo/internal/scheduler"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Is lets callers match any validation failure with errors.Is(err, ErrInvalidConfig).
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateTracking(&cfg.Tracking)...)
	errs = append(errs, validateTransport(&cfg.Transport)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateDatabase(&cfg.Database, cfg.Storage.Driver)...)
	errs = append(errs, validateFlush(&cfg.Flush)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateEndpoint checks that raw is an absolute http(s) URL.
func ValidateEndpoint(raw string) error {
	if raw == "" {
		return fmt.Errorf("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateTracking(cfg *TrackingConfig) ValidationErrors {
	var errs ValidationErrors

	// The endpoint is optional here so queue maintenance commands can run
	// without one; the reporting manager refuses to start without it.
	if cfg.URL != "" {
		if err := ValidateEndpoint(cfg.URL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "tracking.url",
				Message: err.Error(),
			})
		}
	}

	switch strings.ToLower(cfg.Source) {
	case "saas", "local":
	default:
		errs = append(errs, ValidationError{
			Field:   "tracking.source",
			Message: "must be 'saas' or 'local'",
		})
	}

	switch strings.TrimSuffix(strings.ToLower(cfg.UserIDType), "id") {
	case "customer", "member":
	default:
		errs = append(errs, ValidationError{
			Field:   "tracking.user_id_type",
			Message: "must be 'CustomerId' or 'MemberId'",
		})
	}

	if cfg.QueryName == "" || strings.ContainsAny(cfg.QueryName, "?&=# ") {
		errs = append(errs, ValidationError{
			Field:   "tracking.query_name",
			Message: "must be a non-empty query parameter name",
		})
	}

	if cfg.RetryDelay < 0 {
		errs = append(errs, ValidationError{
			Field:   "tracking.retry_delay",
			Message: "must be non-negative",
		})
	}

	if cfg.RetryLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "tracking.retry_limit",
			Message: "must be non-negative",
		})
	}

	if cfg.TimeLayout == "" {
		errs = append(errs, ValidationError{
			Field:   "tracking.time_layout",
			Message: "required",
		})
	}

	return errs
}

func validateTransport(cfg *TransportConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "transport.timeout",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	validDrivers := map[string]bool{"memory": true, "sqlite": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: "must be 'memory' or 'sqlite'",
		})
	}

	validCompression := map[string]bool{"": true, "none": true, "gzip": true, "zstd": true}
	if !validCompression[cfg.Compression] {
		errs = append(errs, ValidationError{
			Field:   "storage.compression",
			Message: "must be one of: none, gzip, zstd",
		})
	}

	return errs
}

func validateDatabase(cfg *DatabaseConfig, driver string) ValidationErrors {
	var errs ValidationErrors

	if driver != "sqlite" {
		return errs
	}

	if cfg.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "database.path",
			Message: "required",
		})
	}

	if cfg.BusyTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "database.busy_timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.MaxOpenConns < 1 {
		errs = append(errs, ValidationError{
			Field:   "database.max_open_conns",
			Message: "must be at least 1",
		})
	}

	return errs
}

func validateFlush(cfg *FlushConfig) ValidationErrors {
	var errs ValidationErrors

	if !cfg.Enabled {
		return errs
	}

	parser := scheduler.NewCronParser()
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		errs = append(errs, ValidationError{
			Field:   "flush.schedule",
			Message: fmt.Sprintf("invalid schedule: %v", err),
		})
		return errs
	}

	if _, err := parser.NextRun(cfg.Schedule, cfg.Timezone, time.Now()); err != nil {
		errs = append(errs, ValidationError{
			Field:   "flush.timezone",
			Message: fmt.Sprintf("invalid timezone %q: %v", cfg.Timezone, err),
		})
	}

	return errs
}

func validateMetrics(cfg *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if !cfg.Enabled {
		return errs
	}

	if cfg.Address == "" {
		errs = append(errs, ValidationError{
			Field:   "metrics.address",
			Message: "required when metrics are enabled",
		})
	}

	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, ValidationError{
			Field:   "metrics.path",
			Message: "must start with '/'",
		})
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[cfg.Level] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: trace, debug, info, warn, error, fatal, panic",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'console'",
		})
	}

	return errs
}
