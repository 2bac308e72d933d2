package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/halverson/ccspend/internal/aggregator"
	"github.com/halverson/ccspend/internal/logscan"
	"github.com/halverson/ccspend/internal/store"
	"github.com/halverson/ccspend/server/internal/database"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store         *store.Store
	db            *database.DB // nil when the sink is disabled
	logger        zerolog.Logger
	claudeDir     string
	autoImport    bool
	retentionDays int
}

// New creates a new Handler
func New(st *store.Store, db *database.DB, logger zerolog.Logger, claudeDir string, autoImport bool, retentionDays int) *Handler {
	return &Handler{
		store:         st,
		db:            db,
		logger:        logger,
		claudeDir:     claudeDir,
		autoImport:    autoImport,
		retentionDays: retentionDays,
	}
}

// dateRange reads from/to query parameters, validating the YYYY-MM-DD form
func dateRange(r *http.Request) (aggregator.DateRange, error) {
	var dr aggregator.DateRange
	for _, q := range []struct {
		name string
		dst  *string
	}{
		{"from", &dr.From},
		{"to", &dr.To},
	} {
		v := r.URL.Query().Get(q.name)
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return dr, err
		}
		*q.dst = v
	}
	return dr, nil
}

// Overview returns cumulative totals and a per-model breakdown
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		h.jsonError(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, aggregator.Overview(h.store.Events(), dr))
}

// Timeseries returns per-day per-model cost and request counts
func (h *Handler) Timeseries(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		h.jsonError(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, aggregator.Timeseries(h.store.Events(), dr))
}

// Sessions returns the most expensive sessions in the range
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		h.jsonError(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	limit := aggregator.DefaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	h.writeJSON(w, map[string]interface{}{
		"sessions": aggregator.TopSessions(h.store.Events(), dr, limit),
		"limit":    limit,
	})
}

// Projects returns per-project spend ranked by cost
func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		h.jsonError(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"projects": aggregator.TopProjects(h.store.Events(), dr),
	})
}

// Events returns a filtered, paginated event listing
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		h.jsonError(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filter := aggregator.EventFilter{
		DateRange: dr,
		Model:     q.Get("model"),
		Provider:  q.Get("provider"),
		SessionID: q.Get("session_id"),
		Sort:      q.Get("sort"),
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.jsonError(w, "page must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Page = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	h.writeJSON(w, aggregator.Events(h.store.Events(), filter))
}

// Models returns the sorted distinct model names in the current snapshot
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, aggregator.DistinctModels(h.store.Events()))
}

// RefreshSnapshot re-scans the logs and imports to the sink. The watcher
// uses it directly, outside any request.
func (h *Handler) RefreshSnapshot() {
	h.store.Refresh()
	h.importToSink()
}

// Refresh re-scans the log directory and swaps the snapshot
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	count, took := h.store.Refresh()
	h.importToSink()

	h.writeJSON(w, map[string]interface{}{
		"events":      count,
		"duration_ms": took.Milliseconds(),
	})
}

// importToSink persists the current snapshot when auto-import is enabled.
// Sink failures are logged, never surfaced to the caller.
func (h *Handler) importToSink() {
	if h.db == nil || !h.autoImport {
		return
	}

	inserted, err := h.db.InsertEvents(h.store.Events())
	if err != nil {
		h.logger.Error().Err(err).Msg("sink import failed")
		return
	}
	if inserted > 0 {
		h.logger.Info().Int64("inserted", inserted).Msg("imported events to sink")
	}

	// Record which files fed this import. The offset stays 0 until an
	// incremental mode reads these rows back.
	for _, f := range logscan.DiscoverFiles(h.claudeDir) {
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		if err := h.db.RecordImportState(f.Path, info.ModTime(), 0); err != nil {
			h.logger.Warn().Err(err).Str("file", f.Path).Msg("failed to record import state")
		}
	}

	if h.retentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -h.retentionDays).Format(time.RFC3339)
		if _, err := h.db.CleanupOlderThan(cutoff); err != nil {
			h.logger.Error().Err(err).Msg("retention cleanup failed")
		}
	}
}

// GetSettings returns all settings from the sink's KV store
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.jsonError(w, "settings require a database", http.StatusNotFound)
		return
	}

	settings, err := h.db.AllSettings()
	if err != nil {
		h.jsonError(w, "Failed to read settings", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, settings)
}

// PutSettings upserts settings into the sink's KV store
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.jsonError(w, "settings require a database", http.StatusNotFound)
		return
	}

	var settings map[string]string
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for key, value := range settings {
		if err := h.db.SetSetting(key, value); err != nil {
			h.jsonError(w, "Failed to save settings", http.StatusInternalServerError)
			return
		}
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// Health reports process and sink health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}
	}

	h.writeJSON(w, map[string]string{"status": "healthy"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
