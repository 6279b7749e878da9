// Package preflight provides readiness checks for external tools and
// filesystem paths that Reel depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll once at startup. If any check
//     fails, the daemon refuses to process items against a broken setup.
//   - The CLI "reel status" command uses individual check functions
//     (CheckSystemDeps, CheckDirectoryAccess) to display readiness.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
