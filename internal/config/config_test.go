package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"casebook/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CASEBOOK_PROJECT", "")
	t.Setenv("CASEBOOK_NTFY_TOPIC", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "casebook")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.DefaultProject != "" {
		t.Fatalf("expected no default project, got %q", cfg.Paths.DefaultProject)
	}
	if cfg.StabilityWindow() != 500*time.Millisecond {
		t.Fatalf("unexpected stability window: %s", cfg.StabilityWindow())
	}
	if cfg.PollInterval() != 100*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if !cfg.Watch.InitialScan {
		t.Fatal("expected initial scan enabled by default")
	}
	if !cfg.Import.VerifyCopies {
		t.Fatal("expected verified copies by default")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if cfg.StorePath() != filepath.Join(wantState, "metadata.db") {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
}

func TestLoadReadsCustomFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	project := filepath.Join(tempHome, "cases", "turnabout")
	payload := map[string]any{
		"paths": map[string]any{
			"state_dir":       "~/state",
			"default_project": "~/cases/turnabout",
		},
		"watch": map[string]any{
			"stability_window_ms": 1500,
			"poll_interval_ms":    250,
		},
		"import": map[string]any{
			"parallelism": 8,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(tempHome, "custom.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom config to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.DefaultProject != project {
		t.Fatalf("unexpected default project: %q", cfg.Paths.DefaultProject)
	}
	if cfg.StabilityWindow() != 1500*time.Millisecond {
		t.Fatalf("unexpected stability window: %s", cfg.StabilityWindow())
	}
	if cfg.Import.Parallelism != 8 {
		t.Fatalf("unexpected parallelism: %d", cfg.Import.Parallelism)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CASEBOOK_PROJECT", "~/game")
	t.Setenv("CASEBOOK_NTFY_TOPIC", " https://ntfy.example/casebook ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DefaultProject != filepath.Join(tempHome, "game") {
		t.Fatalf("unexpected default project: %q", cfg.Paths.DefaultProject)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/casebook" {
		t.Fatalf("unexpected ntfy topic: %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero window", func(c *config.Config) { c.Watch.StabilityWindowMS = 0 }, "watch.stability_window_ms"},
		{"poll exceeds window", func(c *config.Config) { c.Watch.PollIntervalMS = c.Watch.StabilityWindowMS + 1 }, "watch.poll_interval_ms"},
		{"huge window", func(c *config.Config) { c.Watch.StabilityWindowMS = 10 * 60 * 1000 }, "watch.stability_window_ms"},
		{"parallelism", func(c *config.Config) { c.Import.Parallelism = 0 }, "import.parallelism"},
		{"timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }, "notifications.request_timeout"},
		{"level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.StateDir = t.TempDir()
			cfg.Paths.LogDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Watch.StabilityWindowMS != 500 {
		t.Fatalf("unexpected sample stability window: %d", cfg.Watch.StabilityWindowMS)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
