// Package main hosts the casebook CLI entrypoint and command graph.
//
// Most commands are thin IPC calls against the daemon, which owns the watch
// session, the project store, and the event hub. scan and import also run
// in-process so they work without a daemon. Configuration resolution and
// socket discovery live in context.go so subcommands only deal with output.
package main
