// Package scheduler periodically flushes the durable event queue.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultSchedule is used when Config.Schedule is empty.
const DefaultSchedule = "@every 5m"

// Config holds configuration for a Flusher.
type Config struct {
	// Schedule is a cron expression or descriptor (default: "@every 5m").
	Schedule string
	// Timezone is the IANA zone wall-clock schedules fire in (default: Local).
	Timezone string
	// OnStart runs one flush immediately when the flusher starts.
	OnStart bool
}

// Flusher runs a flush function on a cron schedule. Runs never overlap.
type Flusher struct {
	flush  func()
	parser *CronParser

	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	schedule string
	timezone string
	started  bool
}

// NewFlusher creates a stopped flusher around flush.
func NewFlusher(flush func()) *Flusher {
	return &Flusher{
		flush:  flush,
		parser: NewCronParser(),
	}
}

// Start installs the schedule and begins running it.
func (f *Flusher) Start(cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return fmt.Errorf("flusher already started")
	}

	c, entry, err := f.build(cfg.Schedule, cfg.Timezone)
	if err != nil {
		return err
	}

	if cfg.OnStart {
		log.Debug().Msg("Flushing persisted events on start")
		f.flush()
	}

	f.swap(c, entry, cfg.Schedule, cfg.Timezone)
	f.started = true

	log.Info().
		Str("schedule", f.schedule).
		Str("timezone", f.timezone).
		Time("next_run", f.cron.Entry(f.entry).Next).
		Msg("Flush scheduler started")

	return nil
}

// Reschedule replaces the running schedule and zone. The old ones stay when
// either is invalid.
func (f *Flusher) Reschedule(expression, timezone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return fmt.Errorf("flusher not started")
	}
	if orDefault(expression) == f.schedule && orLocal(timezone) == f.timezone {
		return nil
	}

	c, entry, err := f.build(expression, timezone)
	if err != nil {
		return err
	}

	old := f.cron
	f.swap(c, entry, expression, timezone)
	<-old.Stop().Done()

	log.Info().
		Str("schedule", f.schedule).
		Str("timezone", f.timezone).
		Msg("Flush schedule changed")
	return nil
}

// Schedule returns the active expression.
func (f *Flusher) Schedule() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedule
}

// Timezone returns the zone the active schedule fires in.
func (f *Flusher) Timezone() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timezone
}

// NextRun returns when the next scheduled flush fires, or the zero time if
// the flusher is not running.
func (f *Flusher) NextRun() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return time.Time{}
	}
	return f.cron.Entry(f.entry).Next
}

// Stop halts the schedule and waits for a running flush to return.
func (f *Flusher) Stop() {
	f.mu.Lock()
	c := f.cron
	started := f.started
	f.started = false
	f.mu.Unlock()

	if !started {
		return
	}

	<-c.Stop().Done()
	log.Info().Msg("Flush scheduler stopped")
}

// build creates an unstarted cron running flush on expression in timezone.
func (f *Flusher) build(expression, timezone string) (*cron.Cron, cron.EntryID, error) {
	schedule, err := f.parser.Parse(orDefault(expression))
	if err != nil {
		return nil, 0, err
	}
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, 0, err
	}

	c := cron.New(
		cron.WithParser(f.parser.parser),
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	entry := c.Schedule(schedule, cron.FuncJob(f.flush))
	return c, entry, nil
}

// swap installs c as the running cron. Callers hold f.mu.
func (f *Flusher) swap(c *cron.Cron, entry cron.EntryID, expression, timezone string) {
	c.Start()
	f.cron = c
	f.entry = entry
	f.schedule = orDefault(expression)
	f.timezone = orLocal(timezone)
}

func orDefault(expression string) string {
	if expression == "" {
		return DefaultSchedule
	}
	return expression
}

func orLocal(timezone string) string {
	if timezone == "" {
		return "Local"
	}
	return timezone
}

// cronLogger routes robfig/cron's logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
