// Package notifications implements the engine's outbound boundary.
//
// Channel is the three-event surface (asset added, asset removed, error) the
// watch session reports through. Hub is the primary implementation: a
// bounded, sequenced in-memory buffer that UI processes poll or long-poll
// over IPC. Ntfy forwards events to an ntfy topic for setups without a UI.
// Fanout combines several channels; Nop discards everything.
package notifications
