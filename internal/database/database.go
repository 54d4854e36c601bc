// Package database opens the SQLite file that backs durable tracking storage.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
	"github.com/Mutueye/qst-tracking-monorepo/internal/database/migrations"
)

// DB is the queue's SQLite handle, migrated to the latest schema.
type DB struct {
	*sql.DB
	path string
	wal  bool

	closeOnce sync.Once
	closeErr  error
}

// Open creates the file and its directory if needed, applies connection
// pragmas and upgrades the schema.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(max(cfg.MaxOpenConns, 1))
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	version, err := migrations.Apply(context.Background(), sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating %s: %w", cfg.Path, err)
	}

	log.Debug().
		Str("path", cfg.Path).
		Bool("wal", cfg.WALMode).
		Int("schema_version", version).
		Msg("Database opened")

	return &DB{DB: sqlDB, path: cfg.Path, wal: cfg.WALMode}, nil
}

// dsn carries the pragmas in the connection string so every pooled
// connection gets them, not just the first.
func dsn(cfg *config.DatabaseConfig) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout("+strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10)+")")
	if cfg.WALMode {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	q.Add("_pragma", "temp_store(MEMORY)")
	// Queue writes read then rewrite one row; take the write lock up front.
	q.Set("_txlock", "immediate")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

// SchemaVersion reports the schema version recorded in the file.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return migrations.Version(ctx, db.DB)
}

// Close checkpoints the WAL back into the main file and closes the pool.
// Later calls return the first result.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		if db.wal {
			if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				log.Warn().Err(err).Str("path", db.path).Msg("WAL checkpoint failed")
			}
		}
		db.closeErr = db.DB.Close()
	})
	return db.closeErr
}
