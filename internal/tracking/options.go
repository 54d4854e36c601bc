package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mutueye/qst-tracking-monorepo/internal/beacon"
	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
)

const (
	DefaultRetryDelay = 10 * time.Second
	DefaultRetryLimit = 5
	DefaultTimeLayout = "2006/1/2 15:04:05"

	// maxRetryDelay caps exponential backoff.
	maxRetryDelay = 10 * time.Minute
)

// Settings is the effective configuration of a Manager. Settings() hands out copies.
type Settings struct {
	Endpoint           string
	Source             events.Source
	UserIDType         events.UserIDType
	UserIDFunc         func() string
	QueryName          string
	RetryDelay         time.Duration
	RetryLimit         int
	ExponentialBackoff bool
	OnlineFunc         func() bool
	LocationFunc       func() string
	Clock              func() time.Time
	TimeLayout         string
}

// Option changes one field of the settings.
type Option func(*Settings) error

func defaultSettings() Settings {
	return Settings{
		Source:     events.SourceSaas,
		UserIDType: events.UserIDTypeCustomer,
		QueryName:  beacon.DefaultQueryName,
		RetryDelay: DefaultRetryDelay,
		RetryLimit: DefaultRetryLimit,
		OnlineFunc: func() bool { return true },
		Clock:      time.Now,
		TimeLayout: DefaultTimeLayout,
	}
}

// retryDelay returns the wait before the retry that follows the given attempt.
func (s Settings) retryDelay(attempt int) time.Duration {
	if !s.ExponentialBackoff || s.RetryDelay <= 0 {
		return s.RetryDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := s.RetryDelay * time.Duration(1<<attempt)
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func (s Settings) online() bool {
	return s.OnlineFunc == nil || s.OnlineFunc()
}

func (s Settings) location() string {
	if s.LocationFunc == nil {
		return ""
	}
	return s.LocationFunc()
}

// WithEndpoint sets the collection endpoint. It must be an absolute http(s) URL.
func WithEndpoint(url string) Option {
	return func(s *Settings) error {
		if err := config.ValidateEndpoint(url); err != nil {
			return err
		}
		s.Endpoint = url
		return nil
	}
}

func WithSource(src events.Source) Option {
	return func(s *Settings) error {
		if !src.Valid() {
			return fmt.Errorf("unknown source %q", src)
		}
		s.Source = src
		return nil
	}
}

func WithUserIDType(kind events.UserIDType) Option {
	return func(s *Settings) error {
		s.UserIDType = kind
		return nil
	}
}

// WithUserIDFunc sets the accessor queried for the raw user id on every event.
func WithUserIDFunc(fn func() string) Option {
	return func(s *Settings) error {
		s.UserIDFunc = fn
		return nil
	}
}

func WithQueryName(name string) Option {
	return func(s *Settings) error {
		if name == "" {
			name = beacon.DefaultQueryName
		}
		if strings.ContainsAny(name, "=&?#") {
			return fmt.Errorf("invalid query name %q", name)
		}
		s.QueryName = name
		return nil
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Settings) error {
		if d < 0 {
			return fmt.Errorf("retry delay must not be negative, got %s", d)
		}
		s.RetryDelay = d
		return nil
	}
}

// WithRetryLimit sets how many retries follow a failed first attempt.
func WithRetryLimit(n int) Option {
	return func(s *Settings) error {
		if n < 0 {
			return fmt.Errorf("retry limit must not be negative, got %d", n)
		}
		s.RetryLimit = n
		return nil
	}
}

// WithExponentialBackoff doubles the retry delay after every failed retry.
func WithExponentialBackoff(enabled bool) Option {
	return func(s *Settings) error {
		s.ExponentialBackoff = enabled
		return nil
	}
}

// WithOnlineFunc sets the connectivity probe consulted before each retry.
func WithOnlineFunc(fn func() bool) Option {
	return func(s *Settings) error {
		s.OnlineFunc = fn
		return nil
	}
}

// WithLocationFunc sets the fallback page address used when the context carries none.
func WithLocationFunc(fn func() string) Option {
	return func(s *Settings) error {
		s.LocationFunc = fn
		return nil
	}
}

func WithClock(fn func() time.Time) Option {
	return func(s *Settings) error {
		if fn == nil {
			fn = time.Now
		}
		s.Clock = fn
		return nil
	}
}

func WithTimeLayout(layout string) Option {
	return func(s *Settings) error {
		if layout == "" {
			layout = DefaultTimeLayout
		}
		s.TimeLayout = layout
		return nil
	}
}

// OptionsFromConfig converts the tracking section of the configuration file.
// The user id and location are static values there, so they become constant accessors.
func OptionsFromConfig(cfg config.TrackingConfig) ([]Option, error) {
	opts := []Option{
		WithQueryName(cfg.QueryName),
		WithRetryDelay(cfg.RetryDelay),
		WithRetryLimit(cfg.RetryLimit),
		WithExponentialBackoff(cfg.ExponentialBackoff),
		WithTimeLayout(cfg.TimeLayout),
	}

	if cfg.URL != "" {
		opts = append(opts, WithEndpoint(cfg.URL))
	}

	if cfg.Source != "" {
		src, err := events.ParseSource(cfg.Source)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSource(src))
	}

	if cfg.UserIDType != "" {
		kind, err := events.ParseUserIDType(cfg.UserIDType)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithUserIDType(kind))
	}

	userID := cfg.UserID
	opts = append(opts, WithUserIDFunc(func() string { return userID }))

	if cfg.Location != "" {
		location := cfg.Location
		opts = append(opts, WithLocationFunc(func() string { return location }))
	}

	return opts, nil
}
