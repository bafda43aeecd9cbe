// Package assets defines the asset vocabulary shared by the scanner, registry,
// watch session, and importer.
//
// Classify is the path classifier: a pure, total function from a
// project-relative path to a logical type and category, driven by the ordered
// Rules table with an extension fallback. Descriptor is the registry record
// (audio-only properties live behind Descriptor.Audio), Candidate is an
// identity-less observation, and Override carries user metadata that
// filesystem data never clobbers. Layout and FolderFor describe the fixed
// project folder structure.
package assets
