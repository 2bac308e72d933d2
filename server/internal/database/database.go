package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halverson/ccspend/internal/model"
)

// DB wraps the SQL database connection for the optional persistent sink.
// The primary read path never touches it; events are mirrored here so
// other tooling can query them after log files rotate away.
type DB struct {
	*sql.DB
}

// Open opens a SQLite database connection.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors under concurrent load
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// Migrate creates the database schema.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_events (
		provider TEXT NOT NULL,
		request_id TEXT NOT NULL,
		model TEXT NOT NULL,
		session_id TEXT,
		project_path TEXT,
		occurred_at TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
		cache_read_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd REAL NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'primary',
		prompt_text TEXT,
		PRIMARY KEY (provider, request_id)
	);

	CREATE INDEX IF NOT EXISTS idx_usage_events_occurred ON usage_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_usage_events_session ON usage_events(session_id);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS import_files (
		path TEXT PRIMARY KEY,
		modified_at TIMESTAMP NOT NULL,
		line_offset INTEGER NOT NULL DEFAULT 0,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

// InsertEvents mirrors usage events into the sink, ignoring rows whose
// (provider, request_id) key is already present so re-imports after a
// full rescan stay idempotent. Returns the number of new rows.
func (db *DB) InsertEvents(events []model.UsageEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO usage_events
		(provider, request_id, model, session_id, project_path, occurred_at,
		 input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		 cost_usd, source, prompt_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, e := range events {
		result, err := stmt.Exec(
			string(e.Provider), e.RequestID, e.Model, e.SessionID, e.ProjectPath, e.Timestamp,
			e.InputTokens, e.OutputTokens, e.CacheCreationTokens, e.CacheReadTokens,
			e.CostUSD, string(e.Source), e.PromptText,
		)
		if err != nil {
			return 0, err
		}
		n, _ := result.RowsAffected()
		inserted += n
	}

	return inserted, tx.Commit()
}

// EventCount returns the number of mirrored events.
func (db *DB) EventCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM usage_events`).Scan(&n)
	return n, err
}

// CleanupOlderThan removes mirrored events that occurred before cutoff
// (an RFC3339 or YYYY-MM-DD string; comparison is lexical like the rest
// of the pipeline).
func (db *DB) CleanupOlderThan(cutoff string) (int64, error) {
	result, err := db.Exec(`DELETE FROM usage_events WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetSetting retrieves a setting value; ok is false when unset.
func (db *DB) GetSetting(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores or updates a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// AllSettings retrieves every setting as a map.
func (db *DB) AllSettings() (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}

// RecordImportState upserts a file's last-seen modification time and
// line offset. Read back by nothing yet: bookkeeping for a future
// incremental-import mode.
func (db *DB) RecordImportState(path string, modifiedAt time.Time, lineOffset int64) error {
	_, err := db.Exec(`
		INSERT INTO import_files (path, modified_at, line_offset, imported_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			modified_at = excluded.modified_at,
			line_offset = excluded.line_offset,
			imported_at = CURRENT_TIMESTAMP
	`, path, modifiedAt, lineOffset)
	return err
}

// ImportState returns a file's recorded modification time and offset.
func (db *DB) ImportState(path string) (time.Time, int64, bool, error) {
	var modifiedAt time.Time
	var offset int64
	err := db.QueryRow(
		`SELECT modified_at, line_offset FROM import_files WHERE path = ?`, path,
	).Scan(&modifiedAt, &offset)
	if err == sql.ErrNoRows {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, err
	}
	return modifiedAt, offset, true, nil
}
