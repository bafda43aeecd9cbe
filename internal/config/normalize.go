package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeImport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.DefaultProject = strings.TrimSpace(c.Paths.DefaultProject)
	if c.Paths.DefaultProject == "" {
		if value, ok := os.LookupEnv(envDefaultProject); ok {
			c.Paths.DefaultProject = strings.TrimSpace(value)
		}
	}
	if c.Paths.DefaultProject, err = expandPath(c.Paths.DefaultProject); err != nil {
		return fmt.Errorf("paths.default_project: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	if c.Watch.QueueSize <= 0 {
		c.Watch.QueueSize = defaultWatchQueueSize
	}
}

func (c *Config) normalizeImport() {
	if c.Import.Parallelism <= 0 {
		c.Import.Parallelism = defaultImportParallelism
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(envNtfyTopic); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.EventBuffer < minNotificationEventBuffer {
		c.Notifications.EventBuffer = minNotificationEventBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
