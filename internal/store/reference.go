package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hurttlocker/ratemyfit/internal/extract"
)

// Whitelist returns every whitelist entry in insertion order.
func (s *SQLiteStore) Whitelist(ctx context.Context) ([]extract.WhitelistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_name, category, style_descriptors, common_materials
		 FROM whitelist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying whitelist: %w", err)
	}
	defer rows.Close()

	entries := []extract.WhitelistEntry{}
	for rows.Next() {
		var e extract.WhitelistEntry
		var category, descriptors, materials string
		if err := rows.Scan(&e.ItemName, &category, &descriptors, &materials); err != nil {
			return nil, fmt.Errorf("scanning whitelist row: %w", err)
		}
		e.Category = extract.Category(category)
		e.StyleDescriptors = decodeStrings(descriptors)
		e.CommonMaterials = decodeStrings(materials)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SearchCatalog finds products whose name contains q.Noun, or whose tags
// contain one of q.Terms and also name the noun, case-insensitively. Without
// a noun any tag in q.Terms matches. A non-empty gender keeps
// products for that gender plus unisex ones. Results are ranked by rating.
func (s *SQLiteStore) SearchCatalog(ctx context.Context, q extract.CatalogQuery) ([]extract.CatalogItem, error) {
	noun := strings.ToLower(strings.TrimSpace(q.Noun))
	if noun == "" && len(q.Terms) == 0 {
		return []extract.CatalogItem{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var where string
	var args []any
	terms := lowerUnique(q.Terms)
	tagsIn := `EXISTS (SELECT 1 FROM json_each(c.tags) t
			WHERE LOWER(t.value) IN (` + placeholders(len(terms)) + `))`
	switch {
	case noun != "" && len(terms) > 0:
		// A tag hit only counts for products that are the same garment.
		where = `LOWER(c.product_name) LIKE ? ESCAPE '\' OR (` + tagsIn + `
			AND EXISTS (SELECT 1 FROM json_each(c.tags) n WHERE LOWER(n.value) LIKE ? ESCAPE '\'))`
		args = append(args, "%"+escapeLike(noun)+"%")
		for _, t := range terms {
			args = append(args, t)
		}
		args = append(args, "%"+escapeLike(noun)+"%")
	case noun != "":
		where = `LOWER(c.product_name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(noun)+"%")
	default:
		where = tagsIn
		for _, t := range terms {
			args = append(args, t)
		}
	}

	query := `SELECT c.product_name, c.category, c.color, c.material, c.brand, c.rating, c.tags, c.gender
		FROM catalog c WHERE (` + where + `)`
	if gender := strings.ToLower(strings.TrimSpace(q.Gender)); gender != "" {
		query += ` AND (c.gender = ? OR c.gender IN ('unisex', ''))`
		args = append(args, gender)
	}
	query += ` ORDER BY c.rating DESC, c.id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	defer rows.Close()

	items := []extract.CatalogItem{}
	for rows.Next() {
		var c extract.CatalogItem
		var category, tags string
		if err := rows.Scan(&c.ProductName, &category, &c.Color, &c.Material,
			&c.Brand, &c.Rating, &tags, &c.Gender); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		c.Category = extract.Category(category)
		c.Tags = decodeStrings(tags)
		items = append(items, c)
	}
	return items, rows.Err()
}

// UpsertWhitelistEntry inserts or updates a whitelist entry by item_name.
// An existing entry keeps its position in the match order.
func (s *SQLiteStore) UpsertWhitelistEntry(ctx context.Context, e extract.WhitelistEntry) error {
	_, err := upsertWhitelist(ctx, s.db, e)
	return err
}

// UpsertTaxonomy inserts or updates a taxonomy row by name.
func (s *SQLiteStore) UpsertTaxonomy(ctx context.Context, t TaxonomyEntry) error {
	name := normalizeName(t.Name)
	if name == "" {
		return fmt.Errorf("taxonomy name is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO taxonomy (name, category, descriptors, materials, active, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			descriptors = excluded.descriptors,
			materials = excluded.materials,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP`,
		name, strings.ToLower(strings.TrimSpace(string(t.Category))),
		encodeStrings(t.Descriptors), encodeStrings(t.Materials), boolToInt(t.Active))
	if err != nil {
		return fmt.Errorf("upserting taxonomy %q: %w", name, err)
	}
	return nil
}

// UpsertCatalogItem inserts or updates a product keyed by (product_name, brand).
func (s *SQLiteStore) UpsertCatalogItem(ctx context.Context, c extract.CatalogItem) error {
	name := strings.TrimSpace(c.ProductName)
	if name == "" {
		return fmt.Errorf("catalog product_name is required")
	}
	gender := strings.ToLower(strings.TrimSpace(c.Gender))
	if gender == "" {
		gender = "unisex"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog (product_name, category, color, material, brand, rating, tags, gender)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(product_name, brand) DO UPDATE SET
			category = excluded.category,
			color = excluded.color,
			material = excluded.material,
			rating = excluded.rating,
			tags = excluded.tags,
			gender = excluded.gender`,
		name, strings.ToLower(strings.TrimSpace(string(c.Category))), c.Color, c.Material,
		strings.TrimSpace(c.Brand), c.Rating, encodeStrings(c.Tags), gender)
	if err != nil {
		return fmt.Errorf("upserting catalog item %q: %w", name, err)
	}
	return nil
}

// SyncWhitelist refreshes the whitelist from the taxonomy in one transaction.
// Active rows with a valid category are upserted, rows with an unknown
// category are skipped, and whitelist entries whose taxonomy row was
// deactivated are removed. Entries with no taxonomy row are left alone.
func (s *SQLiteStore) SyncWhitelist(ctx context.Context) (SyncReport, error) {
	report := SyncReport{}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("beginning sync transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT name, category, descriptors, materials, active FROM taxonomy ORDER BY id`)
	if err != nil {
		return report, fmt.Errorf("querying taxonomy: %w", err)
	}
	var taxonomy []TaxonomyEntry
	for rows.Next() {
		var t TaxonomyEntry
		var category, descriptors, materials string
		var active int
		if err := rows.Scan(&t.Name, &category, &descriptors, &materials, &active); err != nil {
			rows.Close()
			return report, fmt.Errorf("scanning taxonomy row: %w", err)
		}
		t.Category = extract.Category(category)
		t.Descriptors = decodeStrings(descriptors)
		t.Materials = decodeStrings(materials)
		t.Active = active != 0
		taxonomy = append(taxonomy, t)
	}
	if err := rows.Close(); err != nil {
		return report, fmt.Errorf("reading taxonomy: %w", err)
	}

	for _, t := range taxonomy {
		if !t.Active {
			res, err := tx.ExecContext(ctx, `DELETE FROM whitelist WHERE item_name = ?`, t.Name)
			if err != nil {
				return report, fmt.Errorf("removing %q from whitelist: %w", t.Name, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				report.Removed += int(n)
			}
			continue
		}
		cat, ok := extract.ParseCategory(string(t.Category))
		if !ok {
			report.Skipped = append(report.Skipped, t.Name)
			continue
		}
		inserted, err := upsertWhitelist(ctx, tx, extract.WhitelistEntry{
			ItemName:         t.Name,
			Category:         cat,
			StyleDescriptors: t.Descriptors,
			CommonMaterials:  t.Materials,
		})
		if err != nil {
			return report, err
		}
		if inserted {
			report.Inserted++
		} else {
			report.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("committing sync: %w", err)
	}
	return report, nil
}

// execQuerier is the subset of *sql.DB and *sql.Tx used by shared helpers.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// upsertWhitelist writes e and reports whether it was a new entry.
func upsertWhitelist(ctx context.Context, q execQuerier, e extract.WhitelistEntry) (bool, error) {
	name := normalizeName(e.ItemName)
	if name == "" {
		return false, fmt.Errorf("whitelist item_name is required")
	}
	cat, ok := extract.ParseCategory(string(e.Category))
	if !ok {
		return false, fmt.Errorf("whitelist %q: invalid category %q", name, e.Category)
	}

	var exists int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM whitelist WHERE item_name = ?`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking whitelist %q: %w", name, err)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO whitelist (item_name, category, style_descriptors, common_materials, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(item_name) DO UPDATE SET
			category = excluded.category,
			style_descriptors = excluded.style_descriptors,
			common_materials = excluded.common_materials,
			updated_at = CURRENT_TIMESTAMP`,
		name, string(cat), encodeStrings(e.StyleDescriptors), encodeStrings(e.CommonMaterials))
	if err != nil {
		return false, fmt.Errorf("upserting whitelist %q: %w", name, err)
	}
	return exists == 0, nil
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeStrings tolerates NULL-ish and malformed columns by returning an empty slice.
func decodeStrings(raw string) []string {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func lowerUnique(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
