package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
library:
  state_dir: /tmp/crate-state
  profile: work
  checkpoint_every: 5
worker:
  command: crate-worker
  args: ["--fast"]
  cancel_policy: keep
scheduler:
  frame_interval: 50ms
ui:
  default_page: liked
logging:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Library.StateDir != "/tmp/crate-state" || cfg.Library.Profile != "work" || cfg.Library.CheckpointEvery != 5 {
		t.Fatalf("library = %+v", cfg.Library)
	}
	if cfg.Worker.Command != "crate-worker" || len(cfg.Worker.Args) != 1 || cfg.Worker.CancelPolicy != "keep" {
		t.Fatalf("worker = %+v", cfg.Worker)
	}
	if cfg.Scheduler.FrameInterval != 50*time.Millisecond {
		t.Fatalf("frame interval = %s", cfg.Scheduler.FrameInterval)
	}
	if cfg.UI.DefaultPage != "liked" || cfg.Logging.Format != "json" {
		t.Fatalf("ui/logging = %+v %+v", cfg.UI, cfg.Logging)
	}
	// unset keys keep their defaults
	if cfg.Logging.File != DefaultConfig().Logging.File {
		t.Fatalf("logging.file = %q", cfg.Logging.File)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CRATE_WORKER_CANCEL_POLICY", "keep")
	t.Setenv("CRATE_LIBRARY_PROFILE", "env-profile")
	path := writeConfig(t, "worker:\n  cancel_policy: remove\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Worker.CancelPolicy != "keep" || cfg.Library.Profile != "env-profile" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"defaults", func(*Config) {}, ""},
		{"cancel policy", func(c *Config) { c.Worker.CancelPolicy = "maybe" }, "cancel_policy"},
		{"frame interval", func(c *Config) { c.Scheduler.FrameInterval = 0 }, "frame_interval"},
		{"checkpoint", func(c *Config) { c.Library.CheckpointEvery = -1 }, "checkpoint_every"},
		{"page", func(c *Config) { c.UI.DefaultPage = "home" }, "default_page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("error = %v, want mention of %s", err, tt.errSub)
			}
		})
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := writeConfig(t, "worker:\n  cancel_policy: sometimes\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Worker.Command = "dl"
	cfg.Scheduler.FrameInterval = 40 * time.Millisecond

	path, err := SaveConfig(cfg, t.TempDir())
	if err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Worker.Command != "dl" || loaded.Scheduler.FrameInterval != 40*time.Millisecond {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestCatalogAndLikedFromFile(t *testing.T) {
	path := writeConfig(t, `
library:
  liked: [11, 0, 12]
  playlists:
    "7": Road Trip
  albums:
    "9": Blue Train
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cat := cfg.Catalog()
	if name, ok := cat.PlaylistName("7"); !ok || name != "Road Trip" {
		t.Fatalf("PlaylistName = %q, %v", name, ok)
	}
	if name, ok := cat.AlbumName("9"); !ok || name != "Blue Train" {
		t.Fatalf("AlbumName = %q, %v", name, ok)
	}
	liked := cfg.LikedTracks()
	if len(liked) != 2 || liked[0] != 11 || liked[1] != 12 {
		t.Fatalf("liked = %v", liked)
	}
}
