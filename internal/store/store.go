// Package store provides the SQLite storage layer for RateMyFit.
//
// A single database file holds:
// - Reference data the extraction pipeline reads (whitelist, taxonomy, catalog)
// - Wardrobe entries with their extracted_clothing_items JSON column
// - A meta table tracking schema migrations
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.ratemyfit/ratemyfit.db"

var (
	// ErrNotFound is returned by mutations addressed at a missing wardrobe entry.
	ErrNotFound = errors.New("not found")
	// ErrIndexOutOfRange is returned when an item index is outside the entry's item list.
	ErrIndexOutOfRange = errors.New("item index out of range")
)

// TaxonomyEntry is a row of the primary garment taxonomy the whitelist is
// refreshed from.
type TaxonomyEntry struct {
	Name        string           `json:"name" yaml:"name"`
	Category    extract.Category `json:"category" yaml:"category"`
	Descriptors []string         `json:"descriptors" yaml:"descriptors"`
	Materials   []string         `json:"materials" yaml:"materials"`
	Active      bool             `json:"active" yaml:"active"`
}

// WardrobeEntry is one rated outfit.
type WardrobeEntry struct {
	ID           string                  `json:"id"`
	UserID       string                  `json:"user_id"`
	ImageRef     string                  `json:"image_ref"`
	Score        int                     `json:"score"`
	Feedback     string                  `json:"feedback"`
	Suggestions  []string                `json:"suggestions"`
	FeedbackMode string                  `json:"feedback_mode"`
	Items        []extract.ExtractedItem `json:"extracted_clothing_items"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// SyncReport summarises a whitelist refresh.
type SyncReport struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Removed  int      `json:"removed"`
	Skipped  []string `json:"skipped,omitempty"` // taxonomy names with an invalid category
}

// StoreStats holds row counts for observability.
type StoreStats struct {
	WhitelistCount int64 `json:"whitelist"`
	TaxonomyCount  int64 `json:"taxonomy"`
	CatalogCount   int64 `json:"catalog"`
	EntryCount     int64 `json:"entries"`
	DBSizeBytes    int64 `json:"db_size_bytes"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the storage interface. It satisfies extract.ReferenceStore.
type Store interface {
	// Reference data
	Whitelist(ctx context.Context) ([]extract.WhitelistEntry, error)
	SearchCatalog(ctx context.Context, q extract.CatalogQuery) ([]extract.CatalogItem, error)
	UpsertWhitelistEntry(ctx context.Context, e extract.WhitelistEntry) error
	UpsertTaxonomy(ctx context.Context, t TaxonomyEntry) error
	UpsertCatalogItem(ctx context.Context, c extract.CatalogItem) error
	SyncWhitelist(ctx context.Context) (SyncReport, error)

	// Wardrobe entries
	CreateEntry(ctx context.Context, e *WardrobeEntry) (string, error)
	GetEntry(ctx context.Context, id string) (*WardrobeEntry, error)
	ListEntries(ctx context.Context, userID string) ([]*WardrobeEntry, error)
	UpdateExtractedItems(ctx context.Context, id string, items []extract.ExtractedItem) error
	UpdateExtractedItem(ctx context.Context, id string, index int, item extract.ExtractedItem) error
	RemoveExtractedItem(ctx context.Context, id string, index int) error
	DeleteEntry(ctx context.Context, id string) error

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	return Open(cfg)
}

// Open is NewStore returning the concrete type.
func Open(cfg StoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	cfg.DBPath = expandPath(cfg.DBPath)

	// Create parent directory for non-memory databases
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every new connection to ":memory:" is a fresh empty database.
	if cfg.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only, never auto-vacuum.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats returns row counts and the database file size.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	st := &StoreStats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"whitelist", &st.WhitelistCount},
		{"taxonomy", &st.TaxonomyCount},
		{"catalog", &st.CatalogCount},
		{"wardrobe_entries", &st.EntryCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	if s.dbPath != ":memory:" {
		if fi, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = fi.Size()
		}
	}
	return st, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
