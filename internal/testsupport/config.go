package testsupport

import (
	"path/filepath"
	"testing"

	"casebook/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Watch timings are shortened so debounce tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Watch.StabilityWindowMS = 80
	cfgVal.Watch.PollIntervalMS = 20
	cfgVal.Import.Parallelism = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStabilityWindow overrides the watch timings, in milliseconds.
func WithStabilityWindow(windowMS, pollMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.StabilityWindowMS = windowMS
		b.cfg.Watch.PollIntervalMS = pollMS
	}
}

// WithDefaultProject creates a project directory under the test base and sets
// it as the daemon's default project.
func WithDefaultProject() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.DefaultProject = filepath.Join(b.baseDir, "project")
		NewProjectAt(b.t, b.cfg.Paths.DefaultProject)
	}
}

// WithNtfyTopic points ntfy notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
