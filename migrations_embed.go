package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"nasi-kandar-bot/db"
	"nasi-kandar-bot/logger"
)

// Embedded so `nasi-kandar-bot migrate` works from any directory.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func migrationNames(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// applyMigrations runs each embedded migration not yet recorded in schema_migrations,
// in file name order, one transaction per file. It returns how many were applied.
func applyMigrations(ctx context.Context, log *logger.Logger) (int, error) {
	if db.Pool == nil {
		return 0, errors.New("database is not initialised")
	}
	if _, err := db.Pool.Exec(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	names, err := migrationNames(migrationsFS)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}
		ran, err := applyMigration(ctx, name, string(sqlBytes))
		if err != nil {
			return applied, err
		}
		if ran {
			applied++
			log.Info(ctx, "migration applied", "name", name)
		}
	}
	return applied, nil
}

func applyMigration(ctx context.Context, name, sql string) (bool, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, err)
	}
	return true, nil
}
