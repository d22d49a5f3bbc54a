// Package migrations applies the embedded schema for each supported driver.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sqlite/*.sql
var sqliteFS embed.FS

//go:embed postgres/*.sql
var postgresFS embed.FS

// Migration is one embedded up script.
type Migration struct {
	Version string
	SQL     string
}

// applier records applied versions and runs a migration atomically.
type applier interface {
	ensureVersionTable(ctx context.Context) error
	isApplied(ctx context.Context, version string) (bool, error)
	apply(ctx context.Context, m Migration) error
}

// RunSQLiteMigrations applies pending SQLite migrations in version order.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) (int, error) {
	return run(ctx, sqliteFS, "sqlite", &sqliteApplier{db: db})
}

// RunPostgresMigrations applies pending PostgreSQL migrations in version order.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	return run(ctx, postgresFS, "postgres", &postgresApplier{pool: pool})
}

// Load reads the up scripts under dir, sorted by file name.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		body, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(name, ".up.sql"),
			SQL:     string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func run(ctx context.Context, fsys fs.FS, dir string, a applier) (int, error) {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return 0, err
	}
	if err := a.ensureVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		done, err := a.isApplied(ctx, m.Version)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}
		if err := a.apply(ctx, m); err != nil {
			return applied, fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}
		applied++
	}
	return applied, nil
}

type sqliteApplier struct {
	db *sql.DB
}

func (a *sqliteApplier) ensureVersionTable(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		)`)
	return err
}

func (a *sqliteApplier) isApplied(ctx context.Context, version string) (bool, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&n)
	return n > 0, err
}

func (a *sqliteApplier) apply(ctx context.Context, m Migration) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

type postgresApplier struct {
	pool *pgxpool.Pool
}

func (a *postgresApplier) ensureVersionTable(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (a *postgresApplier) isApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	return exists, err
}

func (a *postgresApplier) apply(ctx context.Context, m Migration) error {
	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		// no arguments: pgx uses the simple protocol, which allows
		// several statements per Exec
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
		return err
	})
}
