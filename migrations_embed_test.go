package main

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"nasi-kandar-bot/db"
)

func TestMigrationNamesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_orders.sql":     {Data: []byte("SELECT 1")},
		"migrations/001_menu_items.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":          {Data: []byte("notes")},
		"migrations/002_seed.sql":       {Data: []byte("SELECT 1")},
	}
	got, err := migrationNames(fsys)
	if err != nil {
		t.Fatalf("migrationNames() error = %v", err)
	}
	want := []string{"migrations/001_menu_items.sql", "migrations/002_seed.sql", "migrations/010_orders.sql"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("migrationNames() = %v, want %v", got, want)
	}
}

func TestEmbeddedMenuMigration(t *testing.T) {
	names, err := migrationNames(migrationsFS)
	if err != nil {
		t.Fatalf("migrationNames() error = %v", err)
	}
	if len(names) == 0 || names[0] != "migrations/001_menu_items.sql" {
		t.Fatalf("embedded migrations = %v", names)
	}
	sql, err := migrationsFS.ReadFile(names[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sql), "CREATE TABLE IF NOT EXISTS menu_items") {
		t.Error("001_menu_items.sql does not create menu_items")
	}
}

func TestApplyMigrationsWithoutDatabase(t *testing.T) {
	if db.Pool != nil {
		t.Skip("database configured")
	}
	if _, err := applyMigrations(context.Background(), nil); err == nil {
		t.Error("applyMigrations() with no pool = nil error")
	}
}
