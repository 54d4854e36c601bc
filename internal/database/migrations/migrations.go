// Package migrations upgrades the queue storage schema. Each embedded file is
// named NNN_description.sql; NNN is the schema version it produces, and the
// current version lives in SQLite's user_version header field.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var embedded embed.FS

// ErrNewerSchema is returned when the file was written by a newer build.
var ErrNewerSchema = errors.New("database schema is newer than this build")

type step struct {
	version int
	name    string
	body    string
}

// Apply upgrades db to the latest embedded schema and returns the version it
// ends at. Every step commits together with its version bump.
func Apply(ctx context.Context, db *sql.DB) (int, error) {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return 0, err
	}
	return apply(ctx, db, sub)
}

// Version reads the schema version recorded in db. A fresh file reports 0.
func Version(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// Latest is the version Apply upgrades to.
func Latest() int {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return 0
	}
	steps, err := load(sub)
	if err != nil || len(steps) == 0 {
		return 0
	}
	return steps[len(steps)-1].version
}

func apply(ctx context.Context, db *sql.DB, fsys fs.FS) (int, error) {
	steps, err := load(fsys)
	if err != nil {
		return 0, err
	}

	current, err := Version(ctx, db)
	if err != nil {
		return 0, err
	}

	latest := 0
	if len(steps) > 0 {
		latest = steps[len(steps)-1].version
	}
	if current > latest {
		return current, fmt.Errorf("%w: file is at %d, build knows %d", ErrNewerSchema, current, latest)
	}

	for _, s := range steps {
		if s.version <= current {
			continue
		}
		if err := run(ctx, db, s); err != nil {
			return current, fmt.Errorf("migration %s: %w", s.name, err)
		}
		current = s.version
		log.Debug().Int("version", s.version).Str("migration", s.name).Msg("Storage schema upgraded")
	}

	return current, nil
}

func run(ctx context.Context, db *sql.DB, s step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.body); err != nil {
		return err
	}
	// PRAGMA arguments cannot be bound.
	if _, err := tx.ExecContext(ctx, "PRAGMA user_version = "+strconv.Itoa(s.version)); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// load reads every *.sql file in fsys, ordered by version.
func load(fsys fs.FS) ([]step, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]step, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		prefix, _, ok := strings.Cut(path.Base(name), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version < 1 {
			return nil, fmt.Errorf("migration %s: name must start with a positive version and '_'", name)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, name, version)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{version: version, name: name, body: string(body)})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}
