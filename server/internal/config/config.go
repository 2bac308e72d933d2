package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	Listen        string  `yaml:"listen"`
	ClaudeDir     string  `yaml:"claude_dir"`
	DatabasePath  string  `yaml:"database_path"` // empty = sink disabled
	AutoImport    bool    `yaml:"auto_import"`
	RetentionDays int     `yaml:"retention_days"` // 0 = keep forever
	Watch         bool    `yaml:"watch"`
	LogLevel      string  `yaml:"log_level"`
	LogFormat     string  `yaml:"log_format"` // "console" or "json"
	RateLimitRPS  float64 `yaml:"rate_limit_rps"`
	RateBurst     int     `yaml:"rate_limit_burst"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	claudeDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		claudeDir = filepath.Join(home, ".claude")
	}
	return &Config{
		Listen:       ":8080",
		ClaudeDir:    claudeDir,
		Watch:        true,
		LogLevel:     "info",
		LogFormat:    "console",
		RateLimitRPS: 10,
		RateBurst:    30,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ccspend-server.yaml"
	}
	return filepath.Join(home, ".ccspend-server.yaml")
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies CCSPEND_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CCSPEND_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("CCSPEND_CLAUDE_DIR"); v != "" {
		cfg.ClaudeDir = v
	}
	if v := os.Getenv("CCSPEND_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("CCSPEND_AUTO_IMPORT"); v != "" {
		cfg.AutoImport = v == "1" || v == "true"
	}
	if v := os.Getenv("CCSPEND_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("CCSPEND_WATCH"); v != "" {
		cfg.Watch = v == "1" || v == "true"
	}
	if v := os.Getenv("CCSPEND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CCSPEND_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// Save writes the configuration to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
