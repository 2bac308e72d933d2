// Package store owns the process-wide usage event snapshot.
package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/halverson/ccspend/internal/metrics"
	"github.com/halverson/ccspend/internal/model"
)

// LoadFunc performs one full scan and returns a fresh collection.
type LoadFunc func() []model.UsageEvent

// Store holds the loaded event collection. The snapshot is replaced
// wholesale by Refresh and never mutated in place, so readers always see
// a complete collection: either the old one or the new one.
type Store struct {
	load    func() []model.UsageEvent
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu     sync.RWMutex
	events []model.UsageEvent
	loaded bool

	// loadMu serializes scans so concurrent refreshes don't rescan the
	// same files twice.
	loadMu sync.Mutex
}

// New creates a store backed by the given load function. The metrics
// collector may be nil (the CLI does not expose metrics).
func New(load LoadFunc, logger zerolog.Logger, collector *metrics.Collector) *Store {
	return &Store{load: load, logger: logger, metrics: collector}
}

// Events returns the current snapshot, performing the initial scan
// lazily on first use. The returned slice must be treated as read-only.
func (s *Store) Events() []model.UsageEvent {
	s.mu.RLock()
	if s.loaded {
		events := s.events
		s.mu.RUnlock()
		return events
	}
	s.mu.RUnlock()

	s.Refresh()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

// Refresh re-runs the full scan and atomically swaps in the result.
// Returns the event count and scan duration.
func (s *Store) Refresh() (int, time.Duration) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()
	events := s.load()
	elapsed := time.Since(start)

	s.mu.Lock()
	s.events = events
	s.loaded = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.LoadsTotal.Inc()
		s.metrics.LoadDuration.Observe(elapsed.Seconds())
		s.metrics.EventsLoaded.Set(float64(len(events)))
		s.metrics.LastLoadTime.Set(float64(time.Now().Unix()))
	}
	s.logger.Info().Int("events", len(events)).Dur("took", elapsed).Msg("usage snapshot refreshed")

	return len(events), elapsed
}

// Loaded reports whether an initial scan has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
