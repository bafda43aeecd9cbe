// Package logs tails the daemon's per-run log file for `casebook logs`.
//
// Reads are offset based so clients can resume where they stopped, negative
// offsets select the last N lines, and follow mode blocks on fsnotify write
// events instead of polling. Callers supply context deadlines so a follow
// ends cleanly when the CLI exits.
package logs
