package cache

import (
	"context"
	"time"
)

// CacheLayer defines the interface that all cache layer implementations must satisfy.
// It is the single point of truth for "is this value still fresh" decisions,
// independent of where the value came from.
type CacheLayer interface {
	// Get retrieves a value from the cache by key.
	// Returns ErrKeyNotFound when the key is absent or its TTL has lapsed.
	Get(ctx context.Context, key string) (interface{}, error)

	// Set stores a value under key with a caller-supplied time-to-live,
	// overwriting any previous entry for the same key.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes exactly one entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every entry whose key starts with prefix and
	// returns the number of entries removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Clear drops all entries owned by this layer.
	Clear(ctx context.Context) error

	// Name returns the identifier for this cache layer (e.g., "L1", "redis").
	// Used for logging, metrics, and debugging.
	Name() string

	// Close releases any resources held by the cache layer.
	Close() error
}

// TTLReporter is implemented by layers that can report the remaining
// lifetime of an entry. The chain uses it to warm upper layers without
// extending an entry past its original deadline.
type TTLReporter interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// CacheEntry represents a cached value with the metadata needed to decide freshness.
type CacheEntry struct {
	// Key is the cache key
	Key string

	// Value is the cached value (can be any type)
	Value interface{}

	// StoredAt is the wall-clock time the value was written
	StoredAt time.Time

	// TTL is the lifetime declared by the writer
	TTL time.Duration
}

// IsExpired reports whether the entry is logically absent at now.
// An entry is valid iff now - StoredAt < TTL.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL
}

// ExpiresAt returns the instant from which the entry is considered absent.
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}

// TimeToLive returns the remaining time-to-live for this entry at now.
// Returns 0 if already expired.
func (e *CacheEntry) TimeToLive(now time.Time) time.Duration {
	if e.IsExpired(now) {
		return 0
	}
	return e.ExpiresAt().Sub(now)
}
