package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/harborline/hscode/internal/service"
)

var (
	_ service.CatalogStore  = (*SQLiteStorage)(nil)
	_ service.SessionStore  = (*SQLiteStorage)(nil)
	_ service.FeedbackStore = (*SQLiteStorage)(nil)
)

// SQLiteStorage backs the catalog, session and feedback stores with a single
// SQLite database. It also holds the in-memory embedding index used for
// nearest-neighbor search; the index is rebuilt from the catalog table on
// demand and after every import.
type SQLiteStorage struct {
	db      *sql.DB
	dbPath  string
	index   []indexedVector
	indexMu sync.RWMutex
	loaded  bool
}

// indexedVector is one catalog embedding pinned in memory for exhaustive
// cosine scans.
type indexedVector struct {
	code   string
	vector []float32
}

// queryable abstracts *sql.DB and *sql.Tx so read helpers work in both.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
