// Package vocalremoval runs vocal-removal jobs: the source clip's muted video
// is paired with its accompaniment-only track and published under the public
// vocal_removal directory as <key>_no_vocals.mp4.
//
// The Executor also satisfies the worker lane contract: Startup purges failed
// records, Poll processes every pending job in insertion order.
package vocalremoval
