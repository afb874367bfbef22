package store

import "time"

// Entry is a single stored value with its absolute expiration instant.
// Entries are immutable once inserted; a repeat store never updates one
// in place, and expiration is never extended.
type Entry struct {
	Value     string
	ExpiresAt time.Time
}

// IsExpired reports whether the entry is expired at the given time.
func (e Entry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
