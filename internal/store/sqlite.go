// Package store keeps listings and matcher output in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"listing-match/internal/match/model"
)

const ddl = `
CREATE TABLE IF NOT EXISTS listings (
	id               TEXT PRIMARY KEY,
	retailer_code    TEXT NOT NULL,
	name             TEXT NOT NULL,
	brand            TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL DEFAULT '',
	unified_category TEXT NOT NULL DEFAULT '',
	current_price    TEXT,
	original_price   TEXT,
	retailer_sku     TEXT NOT NULL DEFAULT '',
	specs            TEXT,
	discovered_at    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS listings_category ON listings(unified_category);
CREATE INDEX IF NOT EXISTS listings_retailer ON listings(retailer_code);

CREATE TABLE IF NOT EXISTS product_matches (
	id                TEXT PRIMARY KEY,
	unified_category  TEXT NOT NULL,
	master_listing_id TEXT NOT NULL,
	payload           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS product_matches_category ON product_matches(unified_category);

CREATE TABLE IF NOT EXISTS duplicate_groups (
	id               TEXT PRIMARY KEY,
	unified_category TEXT NOT NULL,
	retailer_code    TEXT NOT NULL,
	payload          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS duplicate_groups_category ON duplicate_groups(unified_category);
`

// Store implements service.ListingSource and service.MatchStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open match db: %w", err)
	}
	// one writer; block swaps serialize here
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertListings writes listings as delivered by the extraction layer.
func (s *Store) UpsertListings(ctx context.Context, ls []model.Listing) error {
	const q = `INSERT INTO listings
		(id, retailer_code, name, brand, url, unified_category, current_price, original_price, retailer_sku, specs, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			retailer_code = excluded.retailer_code,
			name = excluded.name,
			brand = excluded.brand,
			url = excluded.url,
			unified_category = excluded.unified_category,
			current_price = excluded.current_price,
			original_price = excluded.original_price,
			retailer_sku = excluded.retailer_sku,
			specs = excluded.specs,
			discovered_at = CASE WHEN listings.discovered_at > 0 THEN listings.discovered_at ELSE excluded.discovered_at END`

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, l := range ls {
			var specs sql.NullString
			if len(l.Specs) > 0 {
				b, err := json.Marshal(l.Specs)
				if err != nil {
					return fmt.Errorf("specs of %s: %w", l.ID, err)
				}
				specs = sql.NullString{String: string(b), Valid: true}
			}
			var discovered int64
			if !l.DiscoveredAt.IsZero() {
				discovered = l.DiscoveredAt.UnixMilli()
			}
			if _, err := stmt.ExecContext(ctx, l.ID, l.RetailerCode, l.Name, l.Brand, l.URL,
				strings.TrimSpace(l.UnifiedCategory), l.CurrentPrice, l.OriginalPrice, l.RetailerSku, specs, discovered); err != nil {
				return fmt.Errorf("upsert listing %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) Listings(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	q := `SELECT id, retailer_code, name, brand, url, unified_category, current_price, original_price,
		retailer_sku, specs, discovered_at FROM listings`
	var where []string
	var args []any
	if f.Category != "" {
		where = append(where, "unified_category = ?")
		args = append(args, f.Category)
	}
	if f.Retailer != "" {
		where = append(where, "retailer_code = ?")
		args = append(args, f.Retailer)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var (
			l          model.Listing
			cur, orig  decimal.NullDecimal
			specs      sql.NullString
			discovered int64
		)
		if err := rows.Scan(&l.ID, &l.RetailerCode, &l.Name, &l.Brand, &l.URL, &l.UnifiedCategory,
			&cur, &orig, &l.RetailerSku, &specs, &discovered); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.CurrentPrice, l.OriginalPrice = cur, orig
		if specs.Valid && specs.String != "" {
			if err := json.Unmarshal([]byte(specs.String), &l.Specs); err != nil {
				return nil, fmt.Errorf("specs of %s: %w", l.ID, err)
			}
		}
		if discovered > 0 {
			l.DiscoveredAt = time.UnixMilli(discovered).UTC()
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReplaceBlock swaps a category's matches and duplicate groups in one
// transaction.
func (s *Store) ReplaceBlock(ctx context.Context, category string, matches []model.ProductMatch, dups []model.DuplicateGroup) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_matches WHERE unified_category = ?`, category); err != nil {
			return fmt.Errorf("clear matches: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE unified_category = ?`, category); err != nil {
			return fmt.Errorf("clear duplicates: %w", err)
		}
		if err := insertMatches(ctx, tx, matches); err != nil {
			return err
		}
		for _, d := range dups {
			b, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encode duplicate group %s: %w", d.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO duplicate_groups (id, unified_category, retailer_code, payload) VALUES (?, ?, ?, ?)`,
				d.ID, category, d.RetailerCode, string(b)); err != nil {
				return fmt.Errorf("insert duplicate group %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// ReplaceMatches deletes removeIDs and inserts add atomically.
func (s *Store) ReplaceMatches(ctx context.Context, removeIDs []string, add []model.ProductMatch) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range removeIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM product_matches WHERE id = ?`, id); err != nil {
				return fmt.Errorf("delete match %s: %w", id, err)
			}
		}
		return insertMatches(ctx, tx, add)
	})
}

func (s *Store) MatchesByCategory(ctx context.Context, category string) ([]model.ProductMatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM product_matches WHERE unified_category = ? ORDER BY id`, category)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	return scanPayloads[model.ProductMatch](rows)
}

func (s *Store) DuplicatesByCategory(ctx context.Context, category string) ([]model.DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM duplicate_groups WHERE unified_category = ? ORDER BY id`, category)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	return scanPayloads[model.DuplicateGroup](rows)
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unified_category FROM product_matches UNION SELECT unified_category FROM duplicate_groups ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MatchByListing finds the group holding listingID as master or member.
func (s *Store) MatchByListing(ctx context.Context, listingID string) (model.ProductMatch, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM product_matches
		WHERE master_listing_id = ?
			OR EXISTS (SELECT 1 FROM json_each(product_matches.payload, '$.memberListingIds') WHERE json_each.value = ?)
		ORDER BY id LIMIT 1`, listingID, listingID)
	if err != nil {
		return model.ProductMatch{}, false, fmt.Errorf("query match of %s: %w", listingID, err)
	}
	ms, err := scanPayloads[model.ProductMatch](rows)
	if err != nil || len(ms) == 0 {
		return model.ProductMatch{}, false, err
	}
	return ms[0], true, nil
}

func insertMatches(ctx context.Context, tx *sql.Tx, matches []model.ProductMatch) error {
	for _, m := range matches {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode match %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_matches (id, unified_category, master_listing_id, payload) VALUES (?, ?, ?, ?)`,
			m.ID, m.UnifiedCategory, m.MasterListingID, string(b)); err != nil {
			return fmt.Errorf("insert match %s: %w", m.ID, err)
		}
	}
	return nil
}

func scanPayloads[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
