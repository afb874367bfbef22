package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/fkbarrett/urldemo/internal/logs"
	"github.com/fkbarrett/urldemo/internal/metrics"
)

// DefaultInterval applies when a non-positive sweep interval is
// configured; time.NewTicker panics on those.
const DefaultInterval = 5 * time.Minute

// Store defines the minimal contract required by the sweeper.
// This keeps it decoupled from the concrete store implementation.
type Store interface {
	RemoveExpired() int
}

// Sweeper periodically removes expired mappings from the store.
// Correctness never depends on it: expired entries are already hidden
// from readers by the store itself. The sweeper only bounds memory
// growth for tokens that nothing ever resolves again.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *logs.Logger
	metrics  *metrics.Registry
}

// NewSweeper creates a Sweeper over the given store.
func NewSweeper(
	store Store,
	interval time.Duration,
	logger *logs.Logger,
	reg *metrics.Registry,
) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		metrics:  reg,
	}
}

// Start runs the sweep loop until the context is cancelled.
// It blocks and should typically be run in a separate goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-ctx.Done():
			s.logger.Debug("sweeper stopped")
			return
		}
	}
}

// runOnce performs a single sweep cycle.
func (s *Sweeper) runOnce() {
	s.metrics.Inc(metrics.SweepRunsTotal)

	removed := s.store.RemoveExpired()
	if removed > 0 {
		s.metrics.Add(metrics.SweepKeysRemovedTotal, int64(removed))
		s.logger.Info(fmt.Sprintf("sweeper removed %d expired mappings", removed))
	}
}
