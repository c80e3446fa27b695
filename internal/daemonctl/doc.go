// Package daemonctl starts, stops and restarts the peiyind process on behalf
// of the CLI.
//
// The daemon's pid file is the source of truth: it is written only by the
// process holding the instance lock, so a live pid means a running daemon.
// Stop sends SIGTERM and escalates to SIGKILL after a grace period.
package daemonctl
