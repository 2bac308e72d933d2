package handlers

import (
	"sync"
	"time"
)

// RefreshDebouncer delays refreshes to batch multiple file changes together
type RefreshDebouncer struct {
	refresh func()
	delay   time.Duration
	mu      sync.Mutex
	pending bool
	// generation invalidates timers superseded by a later Schedule call
	generation int
}

// NewRefreshDebouncer creates a debouncer with the specified delay
func NewRefreshDebouncer(refresh func(), delay time.Duration) *RefreshDebouncer {
	return &RefreshDebouncer{
		refresh: refresh,
		delay:   delay,
	}
}

// Schedule queues a refresh, resetting the timer if one is already pending
func (d *RefreshDebouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	d.pending = true
	gen := d.generation
	time.AfterFunc(d.delay, func() {
		d.flush(gen)
	})
}

func (d *RefreshDebouncer) flush(generation int) {
	d.mu.Lock()
	if !d.pending || d.generation != generation {
		// Stale timer or already flushed
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.refresh()
}
