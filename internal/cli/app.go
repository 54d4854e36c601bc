package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Mutueye/qst-tracking-monorepo/internal/beacon"
	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
	"github.com/Mutueye/qst-tracking-monorepo/internal/database"
	"github.com/Mutueye/qst-tracking-monorepo/internal/queue"
	"github.com/Mutueye/qst-tracking-monorepo/internal/tracking"
)

// app is the runtime assembled from a Config: storage, queue, transport and manager.
type app struct {
	cfg     *config.Config
	db      *database.DB
	queue   *queue.Queue
	manager *tracking.Manager
}

// newApp wires every component. The manager is configured only when an
// endpoint is known; queue maintenance commands work without one.
func newApp(cfg *config.Config, transport beacon.Transport) (*app, error) {
	store, db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	if transport == nil {
		transport = beacon.NewHTTPTransport(beacon.HTTPConfig{
			Timeout:   cfg.Transport.Timeout,
			UserAgent: cfg.Transport.UserAgent,
		})
	}

	q := queue.New(store)
	a := &app{
		cfg:     cfg,
		db:      db,
		queue:   q,
		manager: tracking.New(transport, q),
	}

	if cfg.Tracking.URL != "" {
		if err := a.configure(cfg.Tracking); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *app) configure(cfg config.TrackingConfig) error {
	opts, err := tracking.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("tracking config: %w", err)
	}
	if err := a.manager.Configure(opts...); err != nil {
		return fmt.Errorf("configuring tracking: %w", err)
	}
	return nil
}

// requireEndpoint fails commands that deliver events when no endpoint is set.
func (a *app) requireEndpoint() error {
	if !a.manager.Initialized() {
		return fmt.Errorf("no collection endpoint: set tracking.url, QST_TRACK_TRACKING_URL or --endpoint")
	}
	return nil
}

// Close waits for deliveries, persisting anything still retrying, then closes storage.
func (a *app) Close() {
	a.manager.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

func openStore(cfg *config.Config) (queue.Store, *database.DB, error) {
	var (
		store queue.Store
		db    *database.DB
	)

	switch cfg.Storage.Driver {
	case "memory":
		store = queue.NewMemoryStore()
	case "sqlite", "":
		var err error
		db, err = database.Open(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		store = queue.NewSQLiteStore(db)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	compressed, err := queue.NewCompressedStore(store, cfg.Storage.Compression)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}

	log.Debug().
		Str("driver", cfg.Storage.Driver).
		Str("compression", cfg.Storage.Compression).
		Str("path", cfg.Database.Path).
		Msg("Event storage opened")

	return compressed, db, nil
}
