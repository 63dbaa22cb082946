package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config was not written: %v", err)
	}

	def := Default()
	if cfg.BaseURL != def.BaseURL || cfg.PollInterval != def.PollInterval || cfg.ScrollBuffer != def.ScrollBuffer {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if len(cfg.Denylist) != len(def.Denylist) {
		t.Fatalf("expected default denylist, got %v", cfg.Denylist)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	body := "base_url: http://chat.example:9000\npoll_interval: 5s\nscroll_buffer: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIRECHAT_POLL_POLL_INTERVAL", "1s")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://chat.example:9000" {
		t.Fatalf("file value not applied: %s", cfg.BaseURL)
	}
	if cfg.PollInterval != time.Second {
		t.Fatalf("env should override file, got %s", cfg.PollInterval)
	}
	if cfg.ScrollBuffer != 4 {
		t.Fatalf("expected scroll buffer 4, got %d", cfg.ScrollBuffer)
	}
	if cfg.ReconcileWindow != Default().ReconcileWindow {
		t.Fatalf("unset key should keep default, got %s", cfg.ReconcileWindow)
	}
}

func TestLoadRejectsInvalidInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: 0s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected validation error for zero poll interval")
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{BaseURL: "http://other", LogLevel: "debug"})

	if cfg.BaseURL != "http://other" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Fatalf("zero override must not clear poll interval, got %s", cfg.PollInterval)
	}
}
