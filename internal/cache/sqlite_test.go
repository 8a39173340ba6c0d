package cache

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	store, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	t.Run("set and get", func(t *testing.T) {
		if err := store.Set(ctx, "key", json.RawMessage(`{"a":1}`), time.Hour); err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		data, hit, err := store.Get(ctx, "key")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !hit {
			t.Fatal("expected cache hit")
		}
		if got := string(data); got != `{"a":1}` {
			t.Errorf("Get() = %s, want %s", got, `{"a":1}`)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, hit, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if hit {
			t.Error("expected miss for absent key")
		}
	})

	t.Run("replace resets value", func(t *testing.T) {
		if err := store.Set(ctx, "key", json.RawMessage(`{"a":2}`), time.Hour); err != nil {
			t.Fatalf("Set() error: %v", err)
		}

		data, hit, err := store.Get(ctx, "key")
		if err != nil || !hit {
			t.Fatalf("Get() = hit=%v, err=%v", hit, err)
		}
		if got := string(data); got != `{"a":2}` {
			t.Errorf("Get() = %s, want %s", got, `{"a":2}`)
		}

		// Replacement must leave exactly one row for the key.
		rows, err := store.Query(ctx, `SELECT COUNT(*) AS n FROM cache WHERE key = 'key'`)
		if err != nil {
			t.Fatalf("Query() error: %v", err)
		}
		if got := rows[0]["n"].(int64); got != 1 {
			t.Errorf("row count for key = %d, want 1", got)
		}
	})
}

func TestStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	if err := store.Set(ctx, "short", json.RawMessage(`"v"`), 100*time.Millisecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	if _, hit, err := store.Get(ctx, "short"); err != nil || !hit {
		t.Fatalf("expected immediate hit, got hit=%v err=%v", hit, err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, hit, err := store.Get(ctx, "short"); err != nil {
		t.Fatalf("Get() error: %v", err)
	} else if hit {
		t.Error("expected expired entry to be absent")
	}

	// The sweep physically deletes the row, not just hides it.
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d, want 0 after expiry", stats.TotalEntries)
	}
}

func TestStore_CapacityEviction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{MaxSize: 3})

	for _, key := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, key, json.RawMessage(`"v"`), time.Hour); err != nil {
			t.Fatalf("Set(%q) error: %v", key, err)
		}
		// Distinct timestamps so oldest-first order is unambiguous.
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("insert at capacity evicts oldest", func(t *testing.T) {
		if err := store.Set(ctx, "d", json.RawMessage(`"v"`), time.Hour); err != nil {
			t.Fatalf("Set(d) error: %v", err)
		}

		if _, hit, _ := store.Get(ctx, "a"); hit {
			t.Error("expected oldest key a to be evicted")
		}
		for _, key := range []string{"b", "c", "d"} {
			if _, hit, err := store.Get(ctx, key); err != nil || !hit {
				t.Errorf("expected %q to survive eviction, hit=%v err=%v", key, hit, err)
			}
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		if stats.TotalEntries != 3 {
			t.Errorf("TotalEntries = %d, want 3", stats.TotalEntries)
		}
	})

	t.Run("replacing existing key at capacity evicts nothing", func(t *testing.T) {
		if err := store.Set(ctx, "d", json.RawMessage(`"v2"`), time.Hour); err != nil {
			t.Fatalf("Set(d) error: %v", err)
		}
		for _, key := range []string{"b", "c", "d"} {
			if _, hit, _ := store.Get(ctx, key); !hit {
				t.Errorf("expected %q to remain after in-place replace", key)
			}
		}
	})
}

func TestStore_QueryGate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	if err := store.Set(ctx, "key", json.RawMessage(`"v"`), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	t.Run("select allowed", func(t *testing.T) {
		rows, err := store.Query(ctx, "SELECT 1 AS one")
		if err != nil {
			t.Fatalf("Query() error: %v", err)
		}
		want := []map[string]any{{"one": int64(1)}}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("lowercase select allowed", func(t *testing.T) {
		if _, err := store.Query(ctx, "select key from cache"); err != nil {
			t.Fatalf("Query() error: %v", err)
		}
	})

	rejected := []string{
		"DELETE FROM cache",
		"  delete from cache",
		"DROP TABLE cache",
		"UPDATE cache SET ttl = 0",
		"",
		"   ",
	}
	for _, stmt := range rejected {
		t.Run("rejects "+stmt, func(t *testing.T) {
			_, err := store.Query(ctx, stmt)
			if !errors.Is(err, ErrQueryRejected) {
				t.Fatalf("Query(%q) error = %v, want ErrQueryRejected", stmt, err)
			}

			var cacheErr *CacheError
			if errors.As(err, &cacheErr) {
				t.Errorf("rejection must not be a storage CacheError, got %v", err)
			}
		})
	}

	t.Run("rejected statements leave entries untouched", func(t *testing.T) {
		if _, hit, _ := store.Get(ctx, "key"); !hit {
			t.Error("expected entry to survive rejected statements")
		}
	})
}

func TestStore_Query_ExposesRawRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	if err := store.Set(ctx, "k1", json.RawMessage(`{"root":7}`), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	rows, err := store.Query(ctx, "SELECT key, LENGTH(data) AS size FROM cache")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["key"] != "k1" {
		t.Errorf("key = %v, want k1", rows[0]["key"])
	}
	if rows[0]["size"] != int64(len(`{"root":7}`)) {
		t.Errorf("size = %v, want %d", rows[0]["size"], len(`{"root":7}`))
	}
}

func TestStore_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	if err := store.Set(ctx, "key", json.RawMessage(`"v"`), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	t.Run("remove", func(t *testing.T) {
		if err := store.Remove(ctx, "key"); err != nil {
			t.Fatalf("Remove() error: %v", err)
		}
		if _, hit, _ := store.Get(ctx, "key"); hit {
			t.Error("expected key to be removed")
		}
	})

	t.Run("remove absent key is not an error", func(t *testing.T) {
		if err := store.Remove(ctx, "never-existed"); err != nil {
			t.Fatalf("Remove() error: %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		_ = store.Set(ctx, "k1", json.RawMessage(`"v"`), time.Hour)
		_ = store.Set(ctx, "k2", json.RawMessage(`"v"`), time.Hour)

		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear() error: %v", err)
		}
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		if stats.TotalEntries != 0 {
			t.Errorf("TotalEntries = %d, want 0", stats.TotalEntries)
		}
	})
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	t.Run("empty store", func(t *testing.T) {
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		if stats.TotalEntries != 0 || stats.TotalSizeBytes != 0 {
			t.Errorf("Stats() = %+v, want zero values", stats)
		}
		if stats.OldestEntry != nil {
			t.Errorf("OldestEntry = %v, want nil for empty store", stats.OldestEntry)
		}
	})

	t.Run("sums payload sizes", func(t *testing.T) {
		_ = store.Set(ctx, "k1", json.RawMessage(`"12345"`), time.Hour)
		_ = store.Set(ctx, "k2", json.RawMessage(`"123"`), time.Hour)

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		if stats.TotalEntries != 2 {
			t.Errorf("TotalEntries = %d, want 2", stats.TotalEntries)
		}
		want := int64(len(`"12345"`) + len(`"123"`))
		if stats.TotalSizeBytes != want {
			t.Errorf("TotalSizeBytes = %d, want %d", stats.TotalSizeBytes, want)
		}
		if stats.OldestEntry == nil {
			t.Error("OldestEntry = nil, want timestamp")
		}
	})
}

func TestStore_Entries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	for _, key := range []string{"first", "second", "third"} {
		if err := store.Set(ctx, key, json.RawMessage(`"v"`), time.Hour); err != nil {
			t.Fatalf("Set(%q) error: %v", key, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("newest first", func(t *testing.T) {
		entries, err := store.Entries(ctx, 10, 0)
		if err != nil {
			t.Fatalf("Entries() error: %v", err)
		}
		var keys []string
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		want := []string{"third", "second", "first"}
		if diff := cmp.Diff(want, keys); diff != "" {
			t.Errorf("key order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		entries, err := store.Entries(ctx, 1, 1)
		if err != nil {
			t.Fatalf("Entries() error: %v", err)
		}
		if len(entries) != 1 || entries[0].Key != "second" {
			t.Errorf("Entries(1, 1) = %+v, want single entry second", entries)
		}
	})

	t.Run("metadata", func(t *testing.T) {
		entries, err := store.Entries(ctx, 1, 0)
		if err != nil {
			t.Fatalf("Entries() error: %v", err)
		}
		e := entries[0]
		if e.TTL != time.Hour {
			t.Errorf("TTL = %v, want %v", e.TTL, time.Hour)
		}
		if got := e.ExpiresAt.Sub(e.CreatedAt); got != time.Hour {
			t.Errorf("ExpiresAt-CreatedAt = %v, want %v", got, time.Hour)
		}
		if e.SizeBytes != int64(len(`"v"`)) {
			t.Errorf("SizeBytes = %d, want %d", e.SizeBytes, len(`"v"`))
		}
		if e.Expired(time.Now()) {
			t.Error("fresh entry reported as expired")
		}
	})
}

func TestStore_PersistenceAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := store.Set(ctx, "persisted", json.RawMessage(`{"kept":true}`), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set(ctx, "doomed", json.RawMessage(`"v"`), 50*time.Millisecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	reopened := newTestStore(t, Options{Path: path})

	data, hit, err := reopened.Get(ctx, "persisted")
	if err != nil || !hit {
		t.Fatalf("expected persisted entry after reopen, hit=%v err=%v", hit, err)
	}
	if got := string(data); got != `{"kept":true}` {
		t.Errorf("Get() = %s, want %s", got, `{"kept":true}`)
	}

	if _, hit, _ := reopened.Get(ctx, "doomed"); hit {
		t.Error("expected entry expired during downtime to be absent")
	}
}

func TestStore_ConcurrentSetsRespectBound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{MaxSize: 5})

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(n int) {
			key := string(rune('a' + n%10))
			done <- store.Set(ctx, key, json.RawMessage(`"v"`), time.Hour)
		}(i)
	}
	for i := 0; i < 20; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Set() error: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalEntries > 5 {
		t.Errorf("TotalEntries = %d, want <= 5", stats.TotalEntries)
	}
}

func TestCacheError(t *testing.T) {
	base := errors.New("disk exploded")
	err := &CacheError{Op: "set", Err: base}

	if got := err.Error(); got != "cache set: disk exploded" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("expected CacheError to unwrap to the underlying error")
	}
}
