// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI and by UI processes.
//
// It owns socket lifecycle management and the request/response DTOs. Asset,
// status, and event types are shared with the engine packages directly so the
// wire shape follows the descriptors the registry produces. Event delivery is
// pull based: clients long-poll Events with the cursor from their previous
// call and resync with AssetList when Oldest has moved past it.
package ipc
