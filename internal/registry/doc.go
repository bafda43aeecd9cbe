// Package registry owns the authoritative in-memory map of project assets.
//
// A Registry assigns stable ids, merges fresh classifications with stored
// user overrides, and computes added/removed diffs for full snapshots. Ids are
// random UUIDs; once an id is retired by a removal it is never handed out
// again for the lifetime of the registry. Bindings persisted by the project
// store can be fed back through Retain so identities survive restarts.
package registry
