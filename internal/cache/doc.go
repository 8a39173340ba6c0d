// Package cache implements the persistent TTL/LRU store backing mcp-docsrs.
//
// Entries live in a single SQLite table keyed by the canonical docs.rs
// request URL. Expiry is lazy: every read path first deletes all entries
// whose TTL has elapsed, so callers never observe a logically-expired
// value. Capacity is enforced at insert time by evicting the single
// oldest entry. The store is schema-agnostic: values are opaque JSON
// text, and callers own the payload shape.
//
// Usage:
//
//	store, err := cache.New(cache.Options{Path: ":memory:", MaxSize: 100})
//	if err != nil { ... }
//	defer store.Close()
//	err = store.Set(ctx, key, data, time.Hour)
//	data, hit, err := store.Get(ctx, key)
package cache
