// Package logging assembles structured slog loggers and formatting helpers used
// across Casebook components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so watch sessions and imports can
// tag log lines with project roots, session IDs, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail, and retention helpers for the daemon's per-run log files.
package logging
