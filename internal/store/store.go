package store

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fkbarrett/urldemo/internal/metrics"
)

// DefaultTTL applies when a caller does not supply a TTL.
const DefaultTTL = 7 * 24 * time.Hour

// Invalid-argument conditions raised synchronously by Store.
// A false result from Store is not one of these: it is the documented
// collision signal, consumed by the token allocator's retry loop.
var (
	ErrEmptyKey       = errors.New("empty key for store")
	ErrEmptyValue     = errors.New("empty value for store")
	ErrPastExpiration = errors.New("expiration time has already passed")
)

// KeyValueStore is the minimal contract the token mapper depends on.
// Any backing implementation with these semantics can be swapped in
// without touching the allocation logic.
type KeyValueStore interface {
	// Lookup returns the live value for key, or false if the key is
	// absent or expired.
	Lookup(key string) (string, bool)

	// Store associates key with value until now+ttl (DefaultTTL when
	// ttl is zero). It returns true on insert, true without mutation
	// when the same value is already live under key, and false when a
	// different value is. Expiration is never refreshed by a repeat
	// store.
	Store(key, value string, ttl time.Duration) (bool, error)
}

// MemoryStore is an in-process KeyValueStore.
//
// Design:
//   - A single mutex serializes the whole of every Lookup and Store,
//     including the eviction pass. Concurrent callers are equivalent to
//     some total order over their calls.
//   - Expired entries are hidden lazily on read and reclaimed by a
//     bounded eviction pass on each Store (at most two deletions), so
//     garbage collection cost per call stays flat.
//   - The expiration index may reference keys that are already gone;
//     stale pairs are skipped when encountered.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]Entry
	expiration expirationIndex
	defaultTTL time.Duration
	metrics    *metrics.Registry
}

// NewMemoryStore returns an empty store. A zero defaultTTL falls back
// to DefaultTTL.
func NewMemoryStore(defaultTTL time.Duration, reg *metrics.Registry) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &MemoryStore{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
		metrics:    reg,
	}
}

// Lookup returns the value for key if it is present and not expired.
// An expired entry found here is deleted so later readers skip the
// expiration check entirely.
func (s *MemoryStore) Lookup(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Inc(metrics.StoreGetsTotal)

	entry, ok := s.entries[key]
	if !ok {
		s.metrics.Inc(metrics.StoreMissesTotal)
		return "", false
	}

	if entry.IsExpired(time.Now()) {
		delete(s.entries, key)
		s.metrics.Inc(metrics.StoreExpiredTotal)
		s.metrics.Add(metrics.StoreKeysTotal, -1)
		return "", false
	}

	return entry.Value, true
}

// Store inserts key→value with the given TTL.
//
// Rules:
//   - empty key or value, or a TTL resolving to a past instant, is an
//     invalid argument and nothing is inserted
//   - an existing live entry with the same value is an idempotent
//     success; with a different value it is a collision (false, nil)
//     and the existing entry is left untouched
//   - an absent or expired key takes the insert
func (s *MemoryStore) Store(key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if value == "" {
		return false, ErrEmptyValue
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	if !expiresAt.After(now) {
		return false, errors.Wrapf(ErrPastExpiration, "ttl %s", ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Inc(metrics.StoreSetsTotal)

	// bounded garbage collection before the insert
	s.evictExpired(now)

	if existing, ok := s.entries[key]; ok && !existing.IsExpired(now) {
		if existing.Value == value {
			return true, nil
		}
		s.metrics.Inc(metrics.StoreConflictsTotal)
		return false, nil
	}

	if _, ok := s.entries[key]; !ok {
		s.metrics.Inc(metrics.StoreKeysTotal)
	}
	s.entries[key] = Entry{Value: value, ExpiresAt: expiresAt}
	heap.Push(&s.expiration, indexEntry{at: expiresAt, key: key})
	return true, nil
}

// evictExpired deletes at most two expired entries found through the
// expiration index. Caller must hold the lock.
func (s *MemoryStore) evictExpired(now time.Time) {
	for i := 0; i < 2; i++ {
		if !s.evictOne(now) {
			return
		}
	}
}

// evictOne pops expired index pairs until one deletion happens or the
// index head is still live. A popped pair whose key is gone, or whose
// mapping entry outlives the pair, is stale and skipped. Each index
// pair is popped at most once over its lifetime, so skipping keeps the
// amortized cost constant.
func (s *MemoryStore) evictOne(now time.Time) bool {
	for s.expiration.Len() > 0 {
		if s.expiration[0].at.After(now) {
			return false
		}
		popped := heap.Pop(&s.expiration).(indexEntry)

		entry, ok := s.entries[popped.key]
		if !ok || !entry.IsExpired(now) {
			continue // stale index pair
		}

		delete(s.entries, popped.key)
		s.metrics.Inc(metrics.StoreEvictionsTotal)
		s.metrics.Add(metrics.StoreKeysTotal, -1)
		return true
	}
	return false
}

// Len returns the number of entries in the mapping, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// List returns a snapshot of all non-expired entries.
// Used by the admin API.
func (s *MemoryStore) List() map[string]Entry {
	now := time.Now()
	result := make(map[string]Entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.entries {
		if !v.IsExpired(now) {
			result[k] = v
		}
	}
	return result
}

// RemoveExpired removes all expired keys from the mapping.
// Used by the background sweeper.
func (s *MemoryStore) RemoveExpired() int {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.entries {
		if v.IsExpired(now) {
			delete(s.entries, k)
			removed++
		}
	}

	if removed > 0 {
		s.metrics.Add(metrics.StoreExpiredTotal, int64(removed))
		s.metrics.Add(metrics.StoreKeysTotal, -int64(removed))
	}

	return removed
}
