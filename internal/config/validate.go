package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if err := ensurePositiveMap(map[string]int{
		"watch.stability_window_ms": c.Watch.StabilityWindowMS,
		"watch.poll_interval_ms":    c.Watch.PollIntervalMS,
		"watch.queue_size":          c.Watch.QueueSize,
	}); err != nil {
		return err
	}
	if c.Watch.StabilityWindowMS > maxStabilityWindowMS {
		return fmt.Errorf("watch.stability_window_ms must be <= %d", maxStabilityWindowMS)
	}
	if c.Watch.PollIntervalMS > c.Watch.StabilityWindowMS {
		return errors.New("watch.poll_interval_ms must not exceed watch.stability_window_ms")
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.Parallelism < 1 || c.Import.Parallelism > maxImportParallelism {
		return fmt.Errorf("import.parallelism must be between 1 and %d", maxImportParallelism)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"notifications.event_buffer":    c.Notifications.EventBuffer,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn or error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
