package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harborline/hscode/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to build a small catalog with synthetic embeddings.
func createTestEntries() []model.CatalogEntry {
	return []model.CatalogEntry{
		{
			Code:        "8708",
			Description: "Parts and accessories of motor vehicles",
			Keywords:    []string{"vehicle", "auto part"},
			Embedding:   []float32{1, 0, 0, 0},
		},
		{
			Code:        "8708.30.00",
			Description: "Brakes and servo-brakes; parts thereof",
			Keywords:    []string{"brake", "brake pad", "disc"},
			Synonyms:    []string{"braking system"},
			ParentCode:  "8708",
			Embedding:   []float32{0.9, 0.1, 0, 0},
			Metadata:    map[string]string{model.MetaDutyRate: "2.5%"},
		},
		{
			Code:        "8708.93.00",
			Description: "Clutches and parts thereof",
			Keywords:    []string{"clutch"},
			ParentCode:  "8708",
			Embedding:   []float32{0.5, 0.5, 0, 0},
		},
		{
			Code:        "5208.11.00",
			Description: "Woven fabrics of cotton, unbleached, plain weave",
			Keywords:    []string{"cotton", "fabric", "woven"},
			ParentCode:  "5208",
			Embedding:   []float32{0, 0, 1, 0},
		},
		{
			Code:        "5208",
			Description: "Fabrics of cotton",
			Keywords:    []string{"cotton", "fabric"},
			Embedding:   []float32{0, 0, 0.9, 0.1},
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// Running migrations again on an up-to-date database is a no-op.
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}

	var version int
	if err := store.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage("  "); err == nil {
		t.Fatal("Expected error for empty database path")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{0.25, -1.5, 0, 3.14159}
	decoded := decodeVector(encodeVector(vector))

	if len(decoded) != len(vector) {
		t.Fatalf("Decoded length = %d, want %d", len(decoded), len(vector))
	}
	for i := range vector {
		if decoded[i] != vector[i] {
			t.Errorf("Decoded[%d] = %v, want %v", i, decoded[i], vector[i])
		}
	}

	if decodeVector(nil) != nil {
		t.Error("Decoding nil should return nil")
	}
	if decodeVector([]byte{1, 2, 3}) != nil {
		t.Error("Decoding a truncated blob should return nil")
	}
}
