package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := s.runBootstrapDDL(); err != nil {
			return err
		}
	}

	// Seed metadata (outside bootstrap transaction, meta table now exists)
	if err := s.seedMeta(); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	if !bootstrapDone {
		if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	// Schema evolution: catalog gender filter. Databases created before the
	// column existed get it with ALTER TABLE.
	if err := s.migrateCatalogGenderColumn(); err != nil {
		return fmt.Errorf("migrating catalog gender column: %w", err)
	}

	if err := s.migrateLookupIndexes(); err != nil {
		return fmt.Errorf("migrating lookup indexes: %w", err)
	}

	return nil
}

func (s *SQLiteStore) runBootstrapDDL() error {
	statements := []string{
		// Curated whitelist. Row order is the match order of the validator.
		`CREATE TABLE IF NOT EXISTS whitelist (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			item_name         TEXT UNIQUE NOT NULL,
			category          TEXT NOT NULL,
			style_descriptors TEXT NOT NULL DEFAULT '[]',
			common_materials  TEXT NOT NULL DEFAULT '[]',
			updated_at        DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Primary taxonomy the whitelist is refreshed from
		`CREATE TABLE IF NOT EXISTS taxonomy (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT UNIQUE NOT NULL,
			category    TEXT NOT NULL,
			descriptors TEXT NOT NULL DEFAULT '[]',
			materials   TEXT NOT NULL DEFAULT '[]',
			active      INTEGER NOT NULL DEFAULT 1,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// External product catalog
		`CREATE TABLE IF NOT EXISTS catalog (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			product_name TEXT NOT NULL,
			category     TEXT NOT NULL,
			color        TEXT NOT NULL DEFAULT '',
			material     TEXT NOT NULL DEFAULT '',
			brand        TEXT NOT NULL DEFAULT '',
			rating       REAL NOT NULL DEFAULT 0,
			tags         TEXT NOT NULL DEFAULT '[]',
			UNIQUE(product_name, brand)
		)`,

		// Rated outfits
		`CREATE TABLE IF NOT EXISTS wardrobe_entries (
			id                       TEXT PRIMARY KEY,
			user_id                  TEXT NOT NULL,
			image_ref                TEXT NOT NULL DEFAULT '',
			score                    INTEGER NOT NULL DEFAULT 0,
			feedback                 TEXT NOT NULL DEFAULT '',
			suggestions              TEXT NOT NULL DEFAULT '[]',
			feedback_mode            TEXT NOT NULL DEFAULT 'standard',
			extracted_clothing_items TEXT NOT NULL DEFAULT '[]',
			created_at               DATETIME NOT NULL,
			updated_at               DATETIME NOT NULL
		)`,

		// Metadata table
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT
		)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", truncate(stmt, 80), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) isMetaFlagEnabled(key string) (bool, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'`).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	value, err := s.getMetaValue(key)
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

func (s *SQLiteStore) setMetaFlag(key string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, 'true')", key)
	return err
}

func (s *SQLiteStore) getMetaValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// seedMeta initializes the meta table with defaults if not already set.
func (s *SQLiteStore) seedMeta() error {
	defaults := map[string]string{
		"schema_version": "2",
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}

	for k, v := range defaults {
		_, err := s.db.Exec(
			"INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)", k, v,
		)
		if err != nil {
			return fmt.Errorf("seeding meta key %q: %w", k, err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// migrateCatalogGenderColumn adds catalog.gender if it doesn't exist.
func (s *SQLiteStore) migrateCatalogGenderColumn() error {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('catalog') WHERE name='gender'",
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for gender column: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = s.db.Exec(`ALTER TABLE catalog ADD COLUMN gender TEXT NOT NULL DEFAULT 'unisex'`)
	if err != nil && !isDuplicateColumnError(err) {
		return fmt.Errorf("adding gender column: %w", err)
	}
	return nil
}

func (s *SQLiteStore) migrateLookupIndexes() error {
	done, err := s.isMetaFlagEnabled("lookup_indexes_v1")
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_wardrobe_user_created
		 ON wardrobe_entries(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_gender_rating
		 ON catalog(gender, rating DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_taxonomy_active
		 ON taxonomy(active)`,
	}
	for _, ddl := range indexes {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("creating lookup index: %w", err)
		}
	}

	if err := s.setMetaFlag("lookup_indexes_v1"); err != nil {
		return fmt.Errorf("setting lookup_indexes_v1 flag: %w", err)
	}
	return nil
}

// GetDB returns the underlying database handle.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
