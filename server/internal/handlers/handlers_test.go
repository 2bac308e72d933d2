package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/halverson/ccspend/internal/model"
	"github.com/halverson/ccspend/internal/store"
	"github.com/halverson/ccspend/server/internal/database"
)

func testHandler() *Handler {
	events := []model.UsageEvent{
		{
			Provider: model.ProviderAnthropic, Model: "claude-opus-4-6",
			SessionID: "s1", ProjectPath: "/home/u/proj", RequestID: "r1",
			Timestamp: "2026-08-01T10:00:00Z", InputTokens: 1000,
			OutputTokens: 500, CostUSD: 0.0175, Source: model.SourcePrimary,
		},
		{
			Provider: model.ProviderAnthropic, Model: "claude-sonnet-4-5",
			SessionID: "s2", ProjectPath: "/home/u/proj", RequestID: "r2",
			Timestamp: "2026-08-02T11:00:00Z", InputTokens: 2000,
			OutputTokens: 100, CostUSD: 0.0075, Source: model.SourcePrimary,
		},
	}
	st := store.New(func() []model.UsageEvent { return events }, zerolog.Nop(), nil)
	return New(st, nil, zerolog.Nop(), "", false, 0)
}

func TestOverviewHandler(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
	rec := httptest.NewRecorder()

	h.Overview(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ov model.Overview
	if err := json.NewDecoder(rec.Body).Decode(&ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ov.Totals.Requests != 2 {
		t.Errorf("requests = %d, want 2", ov.Totals.Requests)
	}
	if len(ov.ByModel) != 2 {
		t.Errorf("by_model rows = %d, want 2", len(ov.ByModel))
	}
}

func TestOverviewHandlerDateFilter(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/overview?from=2026-08-02&to=2026-08-02", nil)
	rec := httptest.NewRecorder()

	h.Overview(rec, req)

	var ov model.Overview
	if err := json.NewDecoder(rec.Body).Decode(&ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ov.Totals.Requests != 1 {
		t.Errorf("requests = %d, want 1", ov.Totals.Requests)
	}
}

func TestOverviewHandlerBadDate(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/overview?from=08-01-2026", nil)
	rec := httptest.NewRecorder()

	h.Overview(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSessionsHandlerBadLimit(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=0", nil)
	rec := httptest.NewRecorder()

	h.Sessions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEventsHandlerPagination(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=1&page=2", nil)
	rec := httptest.NewRecorder()

	h.Events(rec, req)

	var page model.EventPage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 || page.Pages != 2 || page.Page != 2 {
		t.Errorf("total/pages/page = %d/%d/%d, want 2/2/2", page.Total, page.Pages, page.Page)
	}
	if len(page.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(page.Rows))
	}
	// Default sort is newest first, so page 2 holds the older event
	if page.Rows[0].RequestID != "r1" {
		t.Errorf("row request_id = %q, want r1", page.Rows[0].RequestID)
	}
}

func TestRefreshHandler(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	var resp struct {
		Events int `json:"events"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Events != 2 {
		t.Errorf("events = %d, want 2", resp.Events)
	}
}

func TestRefreshRecordsImportState(t *testing.T) {
	claudeDir := t.TempDir()
	slugDir := filepath.Join(claudeDir, "projects", "-home-u-proj")
	if err := os.MkdirAll(slugDir, 0755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(slugDir, "session.jsonl")
	if err := os.WriteFile(logPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	events := []model.UsageEvent{{
		Provider: model.ProviderAnthropic, Model: "claude-opus-4-6",
		SessionID: "s1", RequestID: "r1",
		Timestamp: "2026-08-01T10:00:00Z", InputTokens: 10, OutputTokens: 5,
		CostUSD: 0.001, Source: model.SourcePrimary,
	}}
	st := store.New(func() []model.UsageEvent { return events }, zerolog.Nop(), nil)
	h := New(st, db, zerolog.Nop(), claudeDir, true, 0)

	h.RefreshSnapshot()

	if n, err := db.EventCount(); err != nil || n != 1 {
		t.Errorf("event count = %d (%v), want 1", n, err)
	}
	if _, _, ok, err := db.ImportState(logPath); err != nil || !ok {
		t.Errorf("import state for %s missing (ok=%v, err=%v)", logPath, ok, err)
	}
}

func TestSettingsWithoutDatabase(t *testing.T) {
	h := testHandler()

	rec := httptest.NewRecorder()
	h.GetSettings(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.PutSettings(rec, httptest.NewRequest(http.MethodPut, "/api/settings", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("PUT status = %d, want 404", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", resp["status"])
	}
}
