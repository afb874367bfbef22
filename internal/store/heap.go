package store

import "time"

// indexEntry is one (expiresAt, key) pair in the expiration index.
type indexEntry struct {
	at  time.Time
	key string
}

// expirationIndex is a min-heap of indexEntry ordered by expiration time.
// It is maintained by container/heap and may hold stale pairs: a key that
// was already deleted, or one whose mapping entry was re-inserted with a
// later expiration. Staleness is detected against the live mapping when a
// pair is popped, never eagerly compacted.
type expirationIndex []indexEntry

func (h expirationIndex) Len() int           { return len(h) }
func (h expirationIndex) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h expirationIndex) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expirationIndex) Push(x any) {
	*h = append(*h, x.(indexEntry))
}

func (h *expirationIndex) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
