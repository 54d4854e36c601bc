package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
	"github.com/Mutueye/qst-tracking-monorepo/internal/database/migrations"
)

func testConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()

	return &config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "queue.db"),
		WALMode:      true,
		BusyTimeout:  2 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

func TestOpen(t *testing.T) {
	cfg := testConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.PingContext(ctx))
	assert.Equal(t, cfg.Path, db.Path())

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations.Latest(), v)

	_, err = db.ExecContext(ctx, `INSERT INTO _qst_storage (key, value, updated_at) VALUES ('k', 'v', 'now')`)
	require.NoError(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	cfg := testConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int64
	require.NoError(t, db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, int64(2000), timeout)
}

func TestOpen_WithoutWAL(t *testing.T) {
	cfg := testConfig(t)
	cfg.WALMode = false
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "delete", mode)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Path = filepath.Join(t.TempDir(), "nested", "dir", "queue.db")

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(cfg.Path))
	require.NoError(t, err)
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO _qst_storage (key, value, updated_at) VALUES ('k', 'v', 'now')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	if info, err := os.Stat(cfg.Path + "-wal"); err == nil {
		assert.Zero(t, info.Size(), "close should checkpoint the WAL")
	}

	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var value string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT value FROM _qst_storage WHERE key = 'k'`).Scan(&value))
	assert.Equal(t, "v", value)
}

func TestOpen_NewerSchemaFails(t *testing.T) {
	cfg := testConfig(t)

	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.Exec(`PRAGMA user_version = 1000`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(cfg)
	require.ErrorIs(t, err, migrations.ErrNewerSchema)
}

func TestClose_Idempotent(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
}
