// Package config loads, normalizes, and validates Casebook configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CASEBOOK_PROJECT and CASEBOOK_NTFY_TOPIC. The Config type centralizes every
// knob the daemon and CLI need, including the watch stability window and poll
// interval that govern when a freshly written asset is considered complete.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
