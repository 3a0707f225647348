package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if got := cfg.FrameInterval(); got != 16*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 16ms", got)
	}
	if got := cfg.FadeIn(); got != 200*time.Millisecond {
		t.Errorf("FadeIn() = %v, want 200ms", got)
	}
	if cfg.ScreenshotPath == "" {
		t.Error("ScreenshotPath is empty")
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("frame_interval_ms: 8\nanimations:\n  fade_out_ms: 350\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.FrameInterval(); got != 8*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 8ms", got)
	}
	if got := cfg.FadeOut(); got != 350*time.Millisecond {
		t.Errorf("FadeOut() = %v, want 350ms", got)
	}
	// Unset keys keep their defaults.
	if got := cfg.FadeIn(); got != 200*time.Millisecond {
		t.Errorf("FadeIn() = %v, want 200ms", got)
	}
}

func TestResolveMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(ConfigEnv, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.FrameIntervalMs != Default().FrameIntervalMs {
		t.Errorf("Resolve returned non-default config: %+v", cfg)
	}
}

func TestResolveExplicitMissingFileErrors(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Resolve with explicit missing path should error")
	}
}
