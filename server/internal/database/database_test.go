package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/halverson/ccspend/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func sinkEvent(id, ts string, cost float64) model.UsageEvent {
	return model.UsageEvent{
		Provider:     model.ProviderAnthropic,
		Model:        "claude-opus-4-6",
		SessionID:    "s1",
		RequestID:    id,
		Timestamp:    ts,
		InputTokens:  10,
		OutputTokens: 5,
		CostUSD:      cost,
		Source:       model.SourcePrimary,
	}
}

func TestInsertEventsIdempotent(t *testing.T) {
	db := openTestDB(t)

	events := []model.UsageEvent{
		sinkEvent("r1", "2024-01-01T10:00:00Z", 1.0),
		sinkEvent("r2", "2024-01-02T10:00:00Z", 2.0),
	}

	inserted, err := db.InsertEvents(events)
	if err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	// Re-importing after a rescan must not duplicate rows.
	inserted, err = db.InsertEvents(events)
	if err != nil {
		t.Fatalf("InsertEvents again: %v", err)
	}
	if inserted != 0 {
		t.Errorf("re-insert inserted = %d, want 0", inserted)
	}

	count, err := db.EventCount()
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertEvents([]model.UsageEvent{
		sinkEvent("r1", "2024-01-01T10:00:00Z", 1.0),
		sinkEvent("r2", "2024-03-01T10:00:00Z", 2.0),
	})
	if err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}

	removed, err := db.CleanupOlderThan("2024-02-01")
	if err != nil {
		t.Fatalf("CleanupOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	count, _ := db.EventCount()
	if count != 1 {
		t.Errorf("count after cleanup = %d, want 1", count)
	}
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetSetting("retention_days"); err != nil || ok {
		t.Fatalf("unset setting: ok=%v err=%v", ok, err)
	}

	if err := db.SetSetting("retention_days", "90"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSetting("retention_days", "30"); err != nil {
		t.Fatalf("SetSetting update: %v", err)
	}

	value, ok, err := db.GetSetting("retention_days")
	if err != nil || !ok || value != "30" {
		t.Errorf("GetSetting = %q/%v/%v, want 30", value, ok, err)
	}

	all, err := db.AllSettings()
	if err != nil {
		t.Fatalf("AllSettings: %v", err)
	}
	if all["retention_days"] != "30" {
		t.Errorf("AllSettings = %v", all)
	}
}

func TestImportState(t *testing.T) {
	db := openTestDB(t)

	if _, _, ok, err := db.ImportState("/logs/a.jsonl"); err != nil || ok {
		t.Fatalf("unknown file: ok=%v err=%v", ok, err)
	}

	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := db.RecordImportState("/logs/a.jsonl", mtime, 120); err != nil {
		t.Fatalf("RecordImportState: %v", err)
	}
	if err := db.RecordImportState("/logs/a.jsonl", mtime.Add(time.Hour), 240); err != nil {
		t.Fatalf("RecordImportState update: %v", err)
	}

	got, offset, ok, err := db.ImportState("/logs/a.jsonl")
	if err != nil || !ok {
		t.Fatalf("ImportState: ok=%v err=%v", ok, err)
	}
	if !got.Equal(mtime.Add(time.Hour)) || offset != 240 {
		t.Errorf("state = %v/%d, want updated values", got, offset)
	}
}
