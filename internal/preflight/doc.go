// Package preflight provides readiness checks for the filesystem paths and
// services casebook depends on.
//
// These checks run in two contexts:
//   - The watch session calls CheckProjectRoot before registering watches, so
//     an unreadable root fails fast instead of producing a half-watched tree.
//   - The CLI "casebook status" command runs RunAll to display path and
//     notification health next to the daemon state.
//
// Each check is gated by its config toggle; unconfigured features are skipped.
package preflight
