// Package watch owns live observation of one project's asset folders.
//
// A Session moves through Idle, Starting, Active and Stopping. While Active,
// fsnotify events, debounce timer expiries and caller commands all travel
// through one bounded queue consumed by a single loop goroutine; that loop is
// the only writer of the session's registry. Created or written files are
// announced only after a quiet stability window; removals apply immediately.
// Rescan holds live events while a full snapshot is taken off-loop, applies
// the snapshot atomically, then replays the held events in order.
//
// Sessions are values owned by their caller, normally the daemon. Starting a
// different project first stops the current one synchronously.
package watch
