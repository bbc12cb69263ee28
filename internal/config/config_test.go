package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}

	if cfg.Cache.DBPath != "preview-cache.db" {
		t.Errorf("Cache.DBPath = %q, expected the default database file", cfg.Cache.DBPath)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q, expected :8080", cfg.Server.ListenAddr)
	}
	if cfg.CooldownDuration() != 3*time.Second {
		t.Errorf("CooldownDuration() = %v, expected 3s", cfg.CooldownDuration())
	}
	if cfg.Resolver.MaxConcurrent != 5 {
		t.Errorf("Resolver.MaxConcurrent = %d, expected 5", cfg.Resolver.MaxConcurrent)
	}

	// The embedded platform table fills the budgets
	budgets := cfg.Budgets()
	if b, ok := budgets["instagram.com"]; !ok || b.MaxRequests != 8 || b.Window != time.Minute {
		t.Errorf("budgets[instagram.com] = %+v, expected 8 per minute", b)
	}
	if b, ok := budgets["tiktok.com"]; !ok || b.MaxRequests != 3 {
		t.Errorf("budgets[tiktok.com] = %+v, expected 3 per minute", b)
	}
	if _, ok := budgets["default"]; !ok {
		t.Errorf("budgets missing the default bucket")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
cache:
  db_path: /tmp/custom.db
server:
  listen_addr: ":9999"
resolver:
  cooldown_seconds: 10
rate_limits:
  tiktok.com:
    max_requests: 1
    window_seconds: 120
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}

	if cfg.Cache.DBPath != "/tmp/custom.db" {
		t.Errorf("Cache.DBPath = %q, expected the configured path", cfg.Cache.DBPath)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q, expected :9999", cfg.Server.ListenAddr)
	}
	if cfg.CooldownDuration() != 10*time.Second {
		t.Errorf("CooldownDuration() = %v, expected 10s", cfg.CooldownDuration())
	}

	budgets := cfg.Budgets()
	if b := budgets["tiktok.com"]; b.MaxRequests != 1 || b.Window != 2*time.Minute {
		t.Errorf("budgets[tiktok.com] = %+v, expected the configured override", b)
	}
	// Unconfigured domains keep the embedded defaults
	if b := budgets["instagram.com"]; b.MaxRequests != 8 {
		t.Errorf("budgets[instagram.com] = %+v, expected the embedded default", b)
	}
}
