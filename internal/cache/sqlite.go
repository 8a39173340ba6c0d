package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vexxvakan/mcp-docsrs/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key       TEXT PRIMARY KEY,
	data      TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	ttl       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_timestamp ON cache(timestamp);
`

// defaultListLimit bounds Entries when the caller passes limit <= 0.
const defaultListLimit = 100

// Options configures a Store.
type Options struct {
	// Path is the SQLite database location, or InMemory for a volatile
	// store. Defaults to InMemory when empty.
	Path string

	// MaxSize is the maximum entry count. Inserting a new key at or
	// above this bound evicts the single oldest entry first.
	// Defaults to 100 when zero or negative.
	MaxSize int

	// Logger receives debug output; defaults to a nop logger when nil.
	Logger logging.Logger
}

// Store is a size-bounded, TTL-aware key/value store over SQLite.
//
// Timestamps and TTLs are persisted as milliseconds since epoch so the
// same database file is readable across store instances and processes.
type Store struct {
	db      *sql.DB
	maxSize int
	logger  logging.Logger

	// mu serializes the count/evict/insert sequence in Set so the size
	// bound holds under concurrent inserts.
	mu sync.Mutex
}

// New opens (or creates) the store at opts.Path and ensures the schema.
func New(opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		path = InMemory
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &CacheError{Op: "open", Err: err}
	}
	// A single connection keeps an in-memory database alive across
	// queries and serializes statement execution on file-backed stores.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &CacheError{Op: "open", Err: err}
	}

	return &Store{db: db, maxSize: maxSize, logger: logger}, nil
}

// Get returns the live value for key after an expiry sweep. The second
// return value reports cache provenance: true only for a live hit.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := s.sweep(ctx); err != nil {
		return nil, false, &CacheError{Op: "get", Err: err}
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM cache WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &CacheError{Op: "get", Err: err}
	}
	return json.RawMessage(data), true, nil
}

// Set inserts or fully replaces the entry for key, resetting its
// creation time. When the store is at capacity and key is not already
// present, the single oldest entry is evicted first.
func (s *Store) Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache`).Scan(&count); err != nil {
		return &CacheError{Op: "set", Err: err}
	}

	if count >= s.maxSize {
		var exists bool
		err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cache WHERE key = ?)`, key).Scan(&exists)
		if err != nil {
			return &CacheError{Op: "set", Err: err}
		}
		// Replacing an existing key never evicts.
		if !exists {
			res, err := s.db.ExecContext(ctx, `
				DELETE FROM cache WHERE key = (
					SELECT key FROM cache ORDER BY timestamp ASC, key ASC LIMIT 1
				)`)
			if err != nil {
				return &CacheError{Op: "set", Err: err}
			}
			if n, _ := res.RowsAffected(); n > 0 {
				s.logger.Debug("evicted oldest cache entry", "count", count, "max_size", s.maxSize)
			}
		}
	}

	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache (key, data, timestamp, ttl) VALUES (?, ?, ?, ?)`,
		key, string(data), now, ttl.Milliseconds())
	if err != nil {
		return &CacheError{Op: "set", Err: err}
	}
	return nil
}

// Remove deletes the entry for key if present; absent keys are not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key); err != nil {
		return &CacheError{Op: "remove", Err: err}
	}
	return nil
}

// Clear deletes all entries unconditionally.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache`); err != nil {
		return &CacheError{Op: "clear", Err: err}
	}
	return nil
}

// Query executes an arbitrary read-only statement against the underlying
// database and returns the resulting rows as plain maps.
//
// Statements that do not lexically begin with the case-insensitive token
// SELECT after trimming whitespace fail with ErrQueryRejected. This is a
// defense-in-depth gate, intentionally a prefix check and not a SQL
// parser. An expiry sweep runs before execution so stale rows are not
// visible to ad hoc queries.
func (s *Store) Query(ctx context.Context, stmt string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(stmt)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, fmt.Errorf("%w: got %q", ErrQueryRejected, truncate(trimmed, 50))
	}

	if err := s.sweep(ctx); err != nil {
		return nil, &CacheError{Op: "query", Err: err}
	}

	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, &CacheError{Op: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &CacheError{Op: "query", Err: err}
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &CacheError{Op: "query", Err: err}
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "query", Err: err}
	}
	return result, nil
}

// Stats returns the aggregate view of all live entries.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.sweep(ctx); err != nil {
		return Stats{}, &CacheError{Op: "stats", Err: err}
	}

	var (
		count  int
		size   int64
		oldest sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0), MIN(timestamp) FROM cache`,
	).Scan(&count, &size, &oldest)
	if err != nil {
		return Stats{}, &CacheError{Op: "stats", Err: err}
	}

	stats := Stats{TotalEntries: count, TotalSizeBytes: size}
	if oldest.Valid {
		t := time.UnixMilli(oldest.Int64)
		stats.OldestEntry = &t
	}
	return stats, nil
}

// Entries lists live entries newest-first. A limit <= 0 falls back to a
// bounded default; offset skips that many entries.
func (s *Store) Entries(ctx context.Context, limit, offset int) ([]EntryInfo, error) {
	if err := s.sweep(ctx); err != nil {
		return nil, &CacheError{Op: "list", Err: err}
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, timestamp, ttl, LENGTH(data)
		FROM cache
		ORDER BY timestamp DESC, key ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, &CacheError{Op: "list", Err: err}
	}
	defer rows.Close()

	var entries []EntryInfo
	for rows.Next() {
		var (
			key       string
			createdMs int64
			ttlMs     int64
			size      int64
		)
		if err := rows.Scan(&key, &createdMs, &ttlMs, &size); err != nil {
			return nil, &CacheError{Op: "list", Err: err}
		}
		created := time.UnixMilli(createdMs)
		ttl := time.Duration(ttlMs) * time.Millisecond
		entries = append(entries, EntryInfo{
			Key:       key,
			CreatedAt: created,
			TTL:       ttl,
			ExpiresAt: created.Add(ttl),
			SizeBytes: size,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "list", Err: err}
	}
	return entries, nil
}

// Close releases the underlying database handle. The store must not be
// used afterwards.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &CacheError{Op: "close", Err: err}
	}
	return nil
}

// sweep deletes all entries whose TTL has elapsed.
func (s *Store) sweep(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache WHERE timestamp + ttl < ?`, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("swept expired cache entries", "removed", n)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
