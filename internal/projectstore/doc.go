// Package projectstore persists per-project asset metadata in SQLite.
//
// It is the engine's view of the external project store: user overrides
// (display name, loop, volume) keyed by relative path, and the path to id
// bindings that let asset identity survive daemon restarts. The database
// lives at <state_dir>/metadata.db and carries a schema version; a mismatch
// is reported as ErrSchemaMismatch rather than migrated in place.
package projectstore
