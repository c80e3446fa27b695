// Package preflight provides readiness checks for the filesystem paths and
// external tools peiyin depends on.
//
// The daemon runs RunAll once at startup and logs each failure; the CLI
// "peiyin status" command prints the same results alongside dependency
// availability from CheckSystemDeps.
package preflight
