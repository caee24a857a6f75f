package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPort_Default(t *testing.T) {
	os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("default Port = %d, want %d", cfg.Port(), DefaultPort)
	}
}

func TestPort_FromEnv(t *testing.T) {
	os.Setenv(EnvPort, "9000")
	defer os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port())
	}
}

func TestPort_Invalid(t *testing.T) {
	os.Setenv(EnvPort, "not-a-port")
	defer os.Unsetenv(EnvPort)

	if _, err := New(); err == nil {
		t.Error("New() should fail for non-numeric port")
	}
}

func TestAssetsDir_Default(t *testing.T) {
	os.Setenv(EnvDataDir, "/tmp/seamline-test")
	defer os.Unsetenv(EnvDataDir)
	os.Unsetenv(EnvAssetsDir)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AssetsDir() != filepath.Join("/tmp/seamline-test", "assets") {
		t.Errorf("AssetsDir = %q, want data dir default", cfg.AssetsDir())
	}
}

func TestEditorTunables_FromYAML(t *testing.T) {
	dir := t.TempDir()
	os.Setenv(EnvDataDir, dir)
	defer os.Unsetenv(EnvDataDir)

	yamlBody := "tick_interval_ms: 16\nmin_track_span_sec: 20\ndefault_clip_duration_sec: 4\n"
	if err := os.WriteFile(filepath.Join(dir, EditorFilename), []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("failed to write editor.yaml: %v", err)
	}

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ed := cfg.Editor()
	if ed.TickIntervalMs != 16 {
		t.Errorf("TickIntervalMs = %d, want 16", ed.TickIntervalMs)
	}
	if ed.MinTrackSpanSec != 20 {
		t.Errorf("MinTrackSpanSec = %v, want 20", ed.MinTrackSpanSec)
	}
	if ed.DefaultClipDuration != 4 {
		t.Errorf("DefaultClipDuration = %v, want 4", ed.DefaultClipDuration)
	}
}

func TestEditorTunables_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	os.Setenv(EnvDataDir, dir)
	defer os.Unsetenv(EnvDataDir)

	if err := os.WriteFile(filepath.Join(dir, EditorFilename), []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("failed to write editor.yaml: %v", err)
	}

	if _, err := New(); err == nil {
		t.Error("New() should fail for malformed editor.yaml")
	}
}
