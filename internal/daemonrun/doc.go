// Package daemonrun wires the daemon process together: logging, preflight,
// the project store, the daemon itself, and its IPC server.
package daemonrun
