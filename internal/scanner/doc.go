// Package scanner performs the reconciliation scan: a one-shot recursive walk
// of a project's img/ and audio/ folders producing classified candidates.
//
// The scan is read-only and best effort. Entries that cannot be read are
// logged and reported in Result.Skipped instead of failing the walk.
package scanner
