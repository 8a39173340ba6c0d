package cache

import (
	"errors"
	"fmt"
	"time"
)

// InMemory is the sentinel Path value for a volatile store that is
// discarded on close.
const InMemory = ":memory:"

// ErrQueryRejected is returned by Query for statements that do not
// lexically begin with SELECT. It is distinguishable from storage
// failures via errors.Is.
var ErrQueryRejected = errors.New("only SELECT statements are allowed")

// CacheError wraps an underlying storage failure, tagged with the
// operation that failed.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Stats is the aggregate view of the store after an expiry sweep.
type Stats struct {
	TotalEntries   int
	TotalSizeBytes int64
	// OldestEntry is nil when the store is empty.
	OldestEntry *time.Time
}

// EntryInfo describes one cached entry without exposing its payload.
type EntryInfo struct {
	Key       string
	CreatedAt time.Time
	TTL       time.Duration
	ExpiresAt time.Time
	SizeBytes int64
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e EntryInfo) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
