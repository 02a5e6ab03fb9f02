package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/id"
)

const entryColumns = `id, user_id, image_ref, score, feedback, suggestions, feedback_mode,
	extracted_clothing_items, created_at, updated_at`

// CreateEntry inserts a wardrobe entry. An empty ID is generated; timestamps
// are set to now. It returns the entry ID.
func (s *SQLiteStore) CreateEntry(ctx context.Context, e *WardrobeEntry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("entry is nil")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return "", fmt.Errorf("entry user_id is required")
	}
	if e.ID == "" {
		v, err := id.Generate(id.PrefixOutfit)
		if err != nil {
			return "", err
		}
		e.ID = v
	}
	if e.FeedbackMode == "" {
		e.FeedbackMode = "standard"
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	items, err := encodeItems(e.Items)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wardrobe_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.ImageRef, e.Score, e.Feedback, encodeStrings(e.Suggestions),
		e.FeedbackMode, items, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("inserting entry: %w", err)
	}
	return e.ID, nil
}

// GetEntry retrieves an entry by ID. It returns nil, nil when absent.
func (s *SQLiteStore) GetEntry(ctx context.Context, entryID string) (*WardrobeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM wardrobe_entries WHERE id = ?`, entryID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry %s: %w", entryID, err)
	}
	return e, nil
}

// ListEntries returns a user's entries, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, userID string) ([]*WardrobeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM wardrobe_entries
		 WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	entries := []*WardrobeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateExtractedItems replaces the item list and bumps updated_at.
// Last write wins.
func (s *SQLiteStore) UpdateExtractedItems(ctx context.Context, entryID string, items []extract.ExtractedItem) error {
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE wardrobe_entries SET extracted_clothing_items = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), entryID)
	if err != nil {
		return fmt.Errorf("updating items of %s: %w", entryID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return nil
}

// UpdateExtractedItem replaces the item at index.
func (s *SQLiteStore) UpdateExtractedItem(ctx context.Context, entryID string, index int, item extract.ExtractedItem) error {
	return s.editItems(ctx, entryID, index, func(items []extract.ExtractedItem) []extract.ExtractedItem {
		items[index] = item
		return items
	})
}

// RemoveExtractedItem splices the item at index out of the list.
func (s *SQLiteStore) RemoveExtractedItem(ctx context.Context, entryID string, index int) error {
	return s.editItems(ctx, entryID, index, func(items []extract.ExtractedItem) []extract.ExtractedItem {
		return append(items[:index], items[index+1:]...)
	})
}

// editItems runs a read-modify-write of the item list in one transaction.
func (s *SQLiteStore) editItems(ctx context.Context, entryID string, index int, edit func([]extract.ExtractedItem) []extract.ExtractedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT extracted_clothing_items FROM wardrobe_entries WHERE id = ?`, entryID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading items of %s: %w", entryID, err)
	}

	items, err := decodeItems(raw)
	if err != nil {
		return fmt.Errorf("entry %s: %w", entryID, err)
	}
	if index < 0 || index >= len(items) {
		return fmt.Errorf("entry %s index %d of %d: %w", entryID, index, len(items), ErrIndexOutOfRange)
	}

	encoded, err := encodeItems(edit(items))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE wardrobe_entries SET extracted_clothing_items = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), entryID); err != nil {
		return fmt.Errorf("writing items of %s: %w", entryID, err)
	}
	return tx.Commit()
}

// DeleteEntry removes an entry.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, entryID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wardrobe_entries WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", entryID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*WardrobeEntry, error) {
	e := &WardrobeEntry{}
	var suggestions, items string
	if err := r.Scan(&e.ID, &e.UserID, &e.ImageRef, &e.Score, &e.Feedback, &suggestions,
		&e.FeedbackMode, &items, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Suggestions = decodeStrings(suggestions)
	decoded, err := decodeItems(items)
	if err != nil {
		return nil, err
	}
	e.Items = decoded
	return e, nil
}

func encodeItems(items []extract.ExtractedItem) (string, error) {
	if items == nil {
		items = []extract.ExtractedItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding items: %w", err)
	}
	return string(b), nil
}

func decodeItems(raw string) ([]extract.ExtractedItem, error) {
	items := []extract.ExtractedItem{}
	if strings.TrimSpace(raw) == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding extracted_clothing_items: %w", err)
	}
	if items == nil {
		items = []extract.ExtractedItem{}
	}
	return items, nil
}
