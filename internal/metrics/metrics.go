package metrics

import (
	"sync"
	"sync/atomic"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized)
const (
	// Store
	StoreKeysTotal      MetricKey = "store_keys_total"
	StoreSetsTotal      MetricKey = "store_sets_total"
	StoreGetsTotal      MetricKey = "store_gets_total"
	StoreMissesTotal    MetricKey = "store_misses_total"
	StoreExpiredTotal   MetricKey = "store_expired_total"
	StoreEvictionsTotal MetricKey = "store_evictions_total"
	StoreConflictsTotal MetricKey = "store_conflicts_total"

	// Token allocation
	AllocRequestsTotal  MetricKey = "alloc_requests_total"
	AllocRetriesTotal   MetricKey = "alloc_retries_total"
	AllocConflictsTotal MetricKey = "alloc_conflicts_total"
	AllocExhaustedTotal MetricKey = "alloc_exhausted_total"

	// Background sweep
	SweepRunsTotal        MetricKey = "sweep_runs_total"
	SweepKeysRemovedTotal MetricKey = "sweep_keys_removed_total"
)

// Registry stores all metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[MetricKey]*int64),
	}
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
func (r *Registry) Add(key MetricKey, delta int64) {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if ok {
		atomic.AddInt64(ptr, delta)
		return
	}

	// Slow path: metric not yet initialized
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if ptr, ok = r.counters[key]; ok {
		atomic.AddInt64(ptr, delta)
		return
	}

	var val int64
	r.counters[key] = &val
	atomic.AddInt64(&val, delta)
}

// Snapshot returns a copy of all counters keyed by name. The copy is
// detached from the registry, so callers (the metrics endpoint, the
// health rules) can hold or mutate it freely.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64, len(r.counters))
	for key, ptr := range r.counters {
		out[string(key)] = atomic.LoadInt64(ptr)
	}
	return out
}
