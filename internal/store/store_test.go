package store

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/halverson/ccspend/internal/model"
)

func TestLazyInitialLoad(t *testing.T) {
	var loads atomic.Int32
	s := New(func() []model.UsageEvent {
		loads.Add(1)
		return []model.UsageEvent{{RequestID: "r1"}}
	}, zerolog.Nop(), nil)

	if s.Loaded() {
		t.Error("store reports loaded before first use")
	}

	events := s.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if loads.Load() != 1 {
		t.Errorf("load ran %d times, want 1", loads.Load())
	}

	// A second read must not rescan.
	s.Events()
	if loads.Load() != 1 {
		t.Errorf("load ran %d times after second read, want 1", loads.Load())
	}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	var n atomic.Int32
	s := New(func() []model.UsageEvent {
		count := int(n.Add(1))
		events := make([]model.UsageEvent, count)
		return events
	}, zerolog.Nop(), nil)

	s.Events()
	old := s.Events()

	count, _ := s.Refresh()
	if count != 2 {
		t.Errorf("refresh count = %d, want 2", count)
	}
	if len(old) != 1 {
		t.Errorf("old snapshot mutated, len = %d", len(old))
	}
	if len(s.Events()) != 2 {
		t.Errorf("new snapshot len = %d, want 2", len(s.Events()))
	}
}

func TestConcurrentReadsDuringRefresh(t *testing.T) {
	s := New(func() []model.UsageEvent {
		return []model.UsageEvent{{RequestID: "r1"}, {RequestID: "r2"}}
	}, zerolog.Nop(), nil)
	s.Refresh()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				events := s.Events()
				if len(events) != 2 {
					t.Errorf("saw partial snapshot of %d events", len(events))
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Refresh()
			}
		}()
	}
	wg.Wait()
}
