// Package daemon coordinates the long-running peiyin process.
//
// It ties configuration, job storage, the workflow manager, and the HTTP API
// into a single lifecycle guarded by a flock so only one daemon owns a data
// directory at a time. Individual pipeline steps live in their own packages;
// the daemon only starts, stops, and reports on them.
package daemon
