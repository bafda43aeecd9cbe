// Package importer copies externally chosen files into a project's asset
// folders.
//
// Each file is routed by its category hint, or by classifying its source path
// when no hint is given, and copied with a temp-then-rename write so a running
// watch session only ever sees complete files. Failures are recorded per file
// and never abort the rest of the batch.
package importer
