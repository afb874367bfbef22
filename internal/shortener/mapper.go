package shortener

import (
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/fkbarrett/urldemo/internal/metrics"
	"github.com/fkbarrett/urldemo/internal/store"
)

const (
	// TokenLength is the length of generated tokens.
	TokenLength = 8

	// maxAttempts bounds the random candidates tried per allocation.
	maxAttempts = 10
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	// ErrTokenTaken means a caller-requested token already maps to a
	// different URL. Never retried: retrying would silently rename the
	// caller's chosen identity.
	ErrTokenTaken = errors.New("requested token already maps to a different URL")

	// ErrTokensExhausted means random generation failed to find a free
	// token within the attempt bound. The caller may retry later.
	ErrTokensExhausted = errors.New("could not allocate a free token")
)

// Mapper allocates short tokens for URLs on top of a KeyValueStore.
// It holds no mutable state of its own; all serialization lives in the
// store.
type Mapper struct {
	cache   store.KeyValueStore
	metrics *metrics.Registry
}

// NewMapper creates a Mapper backed by the given store.
func NewMapper(cache store.KeyValueStore, reg *metrics.Registry) *Mapper {
	return &Mapper{
		cache:   cache,
		metrics: reg,
	}
}

// Allocate maps a token to url and returns the token that took.
//
// With requested set, exactly one store is attempted: a collision with
// a different URL is ErrTokenTaken. Otherwise random candidates are
// tried until one is free, up to the attempt bound. A zero ttl means
// the store default.
func (m *Mapper) Allocate(url string, ttl time.Duration, requested string) (string, error) {
	m.metrics.Inc(metrics.AllocRequestsTotal)

	if requested != "" {
		ok, err := m.cache.Store(requested, url, ttl)
		if err != nil {
			return "", err
		}
		if !ok {
			m.metrics.Inc(metrics.AllocConflictsTotal)
			return "", errors.Wrap(ErrTokenTaken, requested)
		}
		return requested, nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		token := NewToken()
		ok, err := m.cache.Store(token, url, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		// a random token collided with a live entry; try another
		m.metrics.Inc(metrics.AllocRetriesTotal)
	}

	m.metrics.Inc(metrics.AllocExhaustedTotal)
	return "", errors.Wrapf(ErrTokensExhausted, "%d attempts", maxAttempts)
}

// Resolve returns the URL a token maps to, or false if the token is
// unknown or expired.
func (m *Mapper) Resolve(token string) (string, bool) {
	return m.cache.Lookup(token)
}

// NewToken generates a random token of TokenLength ASCII letters, each
// drawn independently and uniformly with replacement.
func NewToken() string {
	b := make([]byte, TokenLength)
	for i := range b {
		b[i] = letters[rand.IntN(len(letters))]
	}
	return string(b)
}
