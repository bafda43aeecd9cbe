// Package daemon coordinates the long-running Casebook process.
//
// It wires configuration, the project store, the event hub with its optional
// ntfy fanout, the watch session, and the bulk importer into a single
// lifecycle with flock-based locking to prevent multiple instances. At start
// the daemon watches the configured default project, if any; afterwards the
// watched project is switched on request.
//
// Keep orchestration here: watch semantics belong to internal/watch and copy
// semantics to internal/importer, while the daemon focuses on startup,
// shutdown, and routing requests to the live session.
package daemon
