// Package logs reads the daemon's current log file for the CLI.
//
// peiyind writes one file per run and points peiyind.log at the newest one.
// Tail returns the last lines of that file and can wait for new lines, which
// is all "peiyin logs" and "peiyin logs --follow" need.
package logs
