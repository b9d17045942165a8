// Package testutil provides shared test helpers for the hscode project:
// throwaway SQLite databases and a small seeded commodity-code catalog.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/storage"
)

// TestDB wraps a migrated throwaway SQLite store for tests.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated SQLite database in a temp directory and
// registers cleanup. Pass entries to seed the catalog in the same call.
func SetupTestDB(t *testing.T, entries []model.CatalogEntry) *TestDB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "hscode-test.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(entries) > 0 {
		if err := store.ImportEntries(ctx, entries); err != nil {
			_ = store.Close()
			t.Fatalf("failed to seed catalog: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustGetEntry returns a catalog entry or fails the test.
func (db *TestDB) MustGetEntry(code string) *model.CatalogEntry {
	db.t.Helper()
	entry, err := db.Storage.GetEntry(context.Background(), code)
	if err != nil {
		db.t.Fatalf("failed to get catalog entry %s: %v", code, err)
	}
	return entry
}
