package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *Config
}

func Load(opts LoadOptions) (*Config, error) {
	v, err := newViper(opts)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func LoadFromFile(path string) (*Config, error) {
	return Load(LoadOptions{ConfigFile: path})
}

func LoadWithDefaults() (*Config, error) {
	return Load(LoadOptions{})
}

// Watch loads the configuration and calls onChange with the re-validated
// result every time the config file is written. Invalid edits are logged and
// skipped so the last good configuration stays in effect.
func Watch(opts LoadOptions, onChange func(*Config)) (*Config, error) {
	v, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() == "" {
		log.Debug().Msg("No config file in use, hot reload disabled")
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		next, err := decode(v)
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("Ignoring invalid config change")
			return
		}

		log.Info().Str("file", e.Name).Msg("Config reloaded")
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}

func newViper(opts LoadOptions) (*viper.Viper, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "QST_TRACK"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("qst-track")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/qst-track")
		v.AddConfigPath("/etc/qst-track")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvInConfig(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("tracking.url", cfg.Tracking.URL)
	v.SetDefault("tracking.source", cfg.Tracking.Source)
	v.SetDefault("tracking.user_id_type", cfg.Tracking.UserIDType)
	v.SetDefault("tracking.user_id", cfg.Tracking.UserID)
	v.SetDefault("tracking.location", cfg.Tracking.Location)
	v.SetDefault("tracking.query_name", cfg.Tracking.QueryName)
	v.SetDefault("tracking.retry_delay", cfg.Tracking.RetryDelay)
	v.SetDefault("tracking.retry_limit", cfg.Tracking.RetryLimit)
	v.SetDefault("tracking.exponential_backoff", cfg.Tracking.ExponentialBackoff)
	v.SetDefault("tracking.time_layout", cfg.Tracking.TimeLayout)

	v.SetDefault("transport.timeout", cfg.Transport.Timeout)
	v.SetDefault("transport.user_agent", cfg.Transport.UserAgent)

	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.compression", cfg.Storage.Compression)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.wal_mode", cfg.Database.WALMode)
	v.SetDefault("database.busy_timeout", cfg.Database.BusyTimeout)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)

	v.SetDefault("flush.enabled", cfg.Flush.Enabled)
	v.SetDefault("flush.schedule", cfg.Flush.Schedule)
	v.SetDefault("flush.timezone", cfg.Flush.Timezone)
	v.SetDefault("flush.on_start", cfg.Flush.OnStart)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.address", cfg.Metrics.Address)
	v.SetDefault("metrics.path", cfg.Metrics.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.caller", cfg.Logging.Caller)
	v.SetDefault("logging.timestamp", cfg.Logging.Timestamp)
}

func expandEnvInConfig(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envVar := val[2 : len(val)-1]
			if envVal := os.Getenv(envVar); envVal != "" {
				v.Set(key, envVal)
			}
		}
	}
}

func ConfigFilePath(customPath string) (string, error) {
	if customPath != "" {
		absPath, err := filepath.Abs(customPath)
		if err != nil {
			return "", fmt.Errorf("resolving config path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", absPath)
		}
		return absPath, nil
	}

	searchPaths := []string{
		"qst-track.yaml",
		"qst-track.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "qst-track", "qst-track.yaml"),
		"/etc/qst-track/qst-track.yaml",
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", ErrConfigNotFound
}
