package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConfigDirEnv(t *testing.T) {
	t.Setenv("TEDIT_CONFIG_HOME", "/tmp/tedit-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/tedit-config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/tedit-config")
	}

	t.Setenv("TEDIT_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg/tedit" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/xdg/tedit")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TEDIT_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Editor.GapSlack != 1024 {
		t.Fatalf("GapSlack = %d, want 1024", cfg.Editor.GapSlack)
	}
	if !cfg.HistoryEnabled() || !cfg.HistorySync() {
		t.Fatalf("history enabled=%v sync=%v, want true true", cfg.HistoryEnabled(), cfg.HistorySync())
	}
	if cfg.History.PreviewBytes != 50 {
		t.Fatalf("PreviewBytes = %d, want 50", cfg.History.PreviewBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEDIT_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "config.toml"), `
[editor]
gap-slack = 64

[history]
enabled = false
sync = false
preview-bytes = 10

[log]
debug = true
file = "/tmp/tedit-test.log"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Editor.GapSlack != 64 {
		t.Fatalf("GapSlack = %d, want 64", cfg.Editor.GapSlack)
	}
	if cfg.Editor.InitialCapacity != 4096 {
		t.Fatalf("InitialCapacity = %d, want 4096", cfg.Editor.InitialCapacity)
	}
	if cfg.HistoryEnabled() {
		t.Fatalf("HistoryEnabled = true, want false")
	}
	if cfg.HistorySync() {
		t.Fatalf("HistorySync = true, want false")
	}
	if cfg.History.PreviewBytes != 10 {
		t.Fatalf("PreviewBytes = %d, want 10", cfg.History.PreviewBytes)
	}
	if cfg.History.ThresholdMB != 50 {
		t.Fatalf("ThresholdMB = %d, want 50", cfg.History.ThresholdMB)
	}
	if !cfg.Log.Debug || cfg.Log.File != "/tmp/tedit-test.log" {
		t.Fatalf("Log = %+v", cfg.Log)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEDIT_CONFIG_HOME", dir)
	writeFile(t, filepath.Join(dir, "config.toml"), "[history\nenabled = ")

	if _, err := Load(); err == nil {
		t.Fatalf("Load error = nil, want decode error")
	}
}
