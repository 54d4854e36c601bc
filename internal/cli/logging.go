package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
)

// setupLogging replaces the global zerolog logger. It runs once at startup,
// before any goroutine logs.
func setupLogging(cfg config.LoggingConfig, verbose bool) {
	log.Logger = newLogger(os.Stderr, cfg)
	applyLogLevel(cfg, verbose)
}

// applyLogLevel sets the global level only, so it is safe on a config
// reload while other goroutines write through log.Logger. --verbose forces
// debug level. Format, timestamp and caller changes need a restart.
func applyLogLevel(cfg config.LoggingConfig, verbose bool) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

func newLogger(out io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}
