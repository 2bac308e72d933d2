package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if !cfg.Watch {
		t.Error("Watch should default to true")
	}
	if cfg.DatabasePath != "" {
		t.Errorf("DatabasePath = %q, want empty (sink disabled)", cfg.DatabasePath)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "listen: \":9999\"\nclaude_dir: /data/claude\ndatabase_path: /data/ccspend.db\nauto_import: true\nretention_days: 90\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9999" || cfg.ClaudeDir != "/data/claude" {
		t.Errorf("got %+v", cfg)
	}
	if !cfg.AutoImport || cfg.RetentionDays != 90 {
		t.Errorf("sink settings not loaded: %+v", cfg)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [broken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Listen = ":9090"
	cfg.RetentionDays = 14
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Listen != ":9090" || loaded.RetentionDays != 14 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CCSPEND_LISTEN", ":7777")
	t.Setenv("CCSPEND_AUTO_IMPORT", "true")
	t.Setenv("CCSPEND_RETENTION_DAYS", "30")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7777" {
		t.Errorf("Listen = %q, want env override", cfg.Listen)
	}
	if !cfg.AutoImport || cfg.RetentionDays != 30 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}
