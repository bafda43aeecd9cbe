// Package services defines shared utilities consumed by the asset
// synchronization components.
//
// Key responsibilities:
//   - Context helpers that stamp project roots, watch session IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures from the
//     watcher, scanner, and importer can be classified (Kind) without string
//     matching.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the engine.
package services
