// Package cache provides an optional on-disk cache of source search results.
//
// Entries are TTL-bounded: the cache only short-circuits repeated searches
// within a session window, it is not a store of research conclusions. All
// cache failures are fail-open: a broken cache degrades to live searches.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/keifu-ai/keifu/internal/model"
)

// Store is the executor-facing cache contract.
type Store interface {
	// Get returns cached records for (source, queryKey). The second return is
	// false on a miss or an expired entry.
	Get(ctx context.Context, source, queryKey string) ([]model.RawRecord, bool, error)
	// Put stores records for (source, queryKey), replacing any prior entry.
	Put(ctx context.Context, source, queryKey string, records []model.RawRecord) error
	Close() error
}

// QueryKey produces a deterministic key for a search query. Two queries with
// identical fields share a key regardless of construction order.
func QueryKey(q model.SearchQuery) string {
	// json.Marshal on a struct emits fields in declaration order, so the
	// encoding is canonical for our purposes.
	b, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

const schema = `
CREATE TABLE IF NOT EXISTS search_cache (
	source     TEXT NOT NULL,
	query_key  TEXT NOT NULL,
	records    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (source, query_key)
);`

// SQLiteStore caches search results in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the cache database at path.
// ttl <= 0 defaults to one hour.
func NewSQLiteStore(path string, ttl time.Duration, logger *slog.Logger) (*SQLiteStore, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, logger: logger}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, source, queryKey string) ([]model.RawRecord, bool, error) {
	var (
		blob      string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT records, created_at FROM search_cache WHERE source = ? AND query_key = ?`,
		source, queryKey,
	).Scan(&blob, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}

	if time.Since(time.Unix(createdAt, 0)) > s.ttl {
		// Expired. Best-effort delete; the next Put overwrites anyway.
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM search_cache WHERE source = ? AND query_key = ?`, source, queryKey)
		return nil, false, nil
	}

	var records []model.RawRecord
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return nil, false, fmt.Errorf("cache: decode records: %w", err)
	}
	return records, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, source, queryKey string, records []model.RawRecord) error {
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("cache: encode records: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_cache (source, query_key, records, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (source, query_key) DO UPDATE SET records = excluded.records, created_at = excluded.created_at`,
		source, queryKey, string(blob), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
