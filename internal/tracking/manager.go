// Package tracking builds tracking events and delivers them as URL beacons,
// retrying failures and persisting what cannot be delivered.
package tracking

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Mutueye/qst-tracking-monorepo/internal/beacon"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
	"github.com/Mutueye/qst-tracking-monorepo/internal/queue"
)

var (
	// ErrNotInitialized is returned (and logged) by every operation used before Configure succeeded.
	ErrNotInitialized = errors.New("tracking manager not initialized: call Configure with an endpoint first")

	// ErrEndpointRequired is returned when the first Configure call carries no endpoint.
	ErrEndpointRequired = errors.New("endpoint url is required")
)

// Callback receives the events of one delivery attempt and its transport result.
type Callback func(batch []events.Event, res beacon.Result)

// Manager owns the reporting configuration, the transport and the durable queue.
type Manager struct {
	transport beacon.Transport
	queue     *queue.Queue

	mu       sync.RWMutex
	settings *Settings

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates an unconfigured manager.
func New(transport beacon.Transport, q *queue.Queue) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		transport: transport,
		queue:     q,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Configure applies opts. The first successful call starts from the defaults
// and must set an endpoint; later calls change only the fields their options
// touch. On error the previous settings stay in effect.
func (m *Manager) Configure(opts ...Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := defaultSettings()
	if m.settings != nil {
		next = *m.settings
	}

	for _, opt := range opts {
		if err := opt(&next); err != nil {
			return err
		}
	}

	if next.Endpoint == "" {
		return ErrEndpointRequired
	}

	first := m.settings == nil
	m.settings = &next

	log.Debug().
		Bool("first", first).
		Str("endpoint", next.Endpoint).
		Str("source", string(next.Source)).
		Int("retry_limit", next.RetryLimit).
		Dur("retry_delay", next.RetryDelay).
		Msg("Tracking configured")

	return nil
}

// Initialized reports whether Configure has succeeded at least once.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings != nil
}

// Settings returns a copy of the current settings, or the zero value before initialization.
func (m *Manager) Settings() Settings {
	s, _ := m.snapshot()
	return s
}

func (m *Manager) snapshot() (Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return Settings{}, false
	}
	return *m.settings, true
}

// ResolveUserID returns the identity the next event would carry.
func (m *Manager) ResolveUserID() (events.UserID, error) {
	s, ok := m.snapshot()
	if !ok {
		log.Error().Err(ErrNotInitialized).Msg("Cannot resolve user id")
		return "", ErrNotInitialized
	}
	return ResolveUserID(s.UserIDType, s.UserIDFunc), nil
}

// Report delivers batch asynchronously. Callbacks may be nil.
func (m *Manager) Report(batch []events.Event, onSuccess, onError Callback) {
	s, ok := m.snapshot()
	if !ok {
		log.Error().Err(ErrNotInitialized).Int("events", len(batch)).Msg("Cannot report events")
		return
	}
	if len(batch) == 0 {
		return
	}

	m.reportBatch(s, batch, onSuccess, onError)
}

// ReportOne builds a single event from params and reports it.
func (m *Manager) ReportOne(ctx context.Context, params events.Params, onSuccess, onError Callback) {
	e, err := m.CreateEvent(ctx, params)
	if err != nil {
		return
	}
	m.Report([]events.Event{e}, onSuccess, onError)
}

// FlushPersisted drains the durable queue and reports its contents.
func (m *Manager) FlushPersisted(onSuccess, onError Callback) {
	s, ok := m.snapshot()
	if !ok {
		log.Error().Err(ErrNotInitialized).Msg("Cannot flush persisted events")
		return
	}
	m.flush(s, onSuccess, onError)
}

// Wait blocks until every delivery and scheduled retry has finished.
// Reports must not be started concurrently with the first call to Wait.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels pending retry waits, persisting their events, and waits for
// sends already in flight to complete. Reports made after Close are
// persisted directly.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		log.Debug().Msg("Closing tracking manager")
		m.cancel()
	})
	m.wg.Wait()
}
