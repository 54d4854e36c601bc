package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
	"github.com/Mutueye/qst-tracking-monorepo/internal/metrics"
	"github.com/Mutueye/qst-tracking-monorepo/internal/pagectx"
	"github.com/Mutueye/qst-tracking-monorepo/internal/scheduler"
	"github.com/Mutueye/qst-tracking-monorepo/internal/tracking"
)

var pipeNoWatch bool

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Report events read from stdin",
	Long: `Read one JSON object per line from stdin and report each as an event.

Each line carries the caller-supplied fields plus optional context:
  {"type":"click","platform":"lab","bdata":"{\"btn\":\"start\"}","location":"https://example.com/lab"}

While running, persisted events are flushed on the flush.schedule cron
expression, metrics are served when metrics.enabled is set, and edits to the
config file are applied without a restart (use --no-watch to disable).
The command stops at end of input or on SIGINT/SIGTERM; deliveries still
waiting for a retry are persisted.`,
	Args: cobra.NoArgs,
	RunE: runPipe,
}

func init() {
	pipeCmd.Flags().BoolVar(&pipeNoWatch, "no-watch", false, "Disable config hot reload")

	rootCmd.AddCommand(pipeCmd)
}

// pipeLine is one input record.
type pipeLine struct {
	events.Params
	Location  string `json:"location,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func runPipe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireEndpoint(); err != nil {
		return err
	}

	var flusher *scheduler.Flusher
	if appConfig.Flush.Enabled {
		flusher = scheduler.NewFlusher(func() { a.manager.FlushPersisted(nil, nil) })
		if err := flusher.Start(scheduler.Config{
			Schedule: appConfig.Flush.Schedule,
			Timezone: appConfig.Flush.Timezone,
			OnStart:  appConfig.Flush.OnStart,
		}); err != nil {
			return fmt.Errorf("starting flush scheduler: %w", err)
		}
		defer flusher.Stop()
	}

	if appConfig.Metrics.Enabled {
		srv := metrics.Server(appConfig.Metrics.Address, appConfig.Metrics.Path)
		metrics.Serve(srv)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if !pipeNoWatch {
		if _, err := config.Watch(config.LoadOptions{ConfigFile: cfgFile}, reloadFunc(a, flusher)); err != nil {
			log.Warn().Err(err).Msg("Config hot reload disabled")
		}
	}

	log.Info().Str("endpoint", a.manager.Settings().Endpoint).Msg("Reading events from stdin")

	n, err := readLines(ctx, cmd.InOrStdin(), a.manager)
	log.Info().Int("events", n).Msg("Input finished, waiting for deliveries")
	return err
}

// reloadFunc applies a changed config file to the running components.
func reloadFunc(a *app, flusher *scheduler.Flusher) func(*config.Config) {
	return func(next *config.Config) {
		if endpoint != "" {
			next.Tracking.URL = endpoint
		}

		applyLogLevel(next.Logging, verbose)

		if err := a.configure(next.Tracking); err != nil {
			log.Error().Err(err).Msg("Keeping previous tracking settings")
		}

		if flusher != nil {
			if err := flusher.Reschedule(next.Flush.Schedule, next.Flush.Timezone); err != nil {
				log.Error().Err(err).Msg("Keeping previous flush schedule")
			}
		}
	}
}

// readLines reports every line of r until EOF or ctx is cancelled and
// returns how many events were handed to the manager. Malformed lines are
// logged and skipped.
func readLines(ctx context.Context, r io.Reader, m *tracking.Manager) (int, error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	reported := 0
	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			return reported, nil

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return reported, fmt.Errorf("reading stdin: %w", err)
					}
				default:
				}
				return reported, nil
			}

			lineNo++
			if len(line) == 0 {
				continue
			}

			in, err := parseLine(line)
			if err != nil {
				log.Warn().Err(err).Int("line", lineNo).Msg("Skipping malformed input")
				continue
			}

			lineCtx := ctx
			if in.Location != "" {
				lineCtx = pagectx.WithLocation(lineCtx, in.Location)
			}
			if in.RequestID != "" {
				lineCtx = pagectx.WithRequestID(lineCtx, in.RequestID)
			}

			m.ReportOne(lineCtx, in.Params, nil, nil)
			reported++
		}
	}
}

func parseLine(line string) (pipeLine, error) {
	var in pipeLine
	if err := json.Unmarshal([]byte(line), &in); err != nil {
		return pipeLine{}, fmt.Errorf("decoding line: %w", err)
	}

	category, err := events.ParseCategory(string(in.Type))
	if err != nil {
		return pipeLine{}, err
	}
	in.Type = category

	return in, nil
}
