// Package workflow supervises the daemon's background lanes.
//
// A lane is a long-running poll loop: the vocal-removal and dubbing executors,
// the recommendation refresher and the work directory janitor all implement
// Lane. The Manager runs each lane's Startup hook once, then calls Poll on the
// lane's interval, backing off after errors, until Stop cancels the loops.
// Lanes run independently, so a long dubbing job never delays vocal removal.
//
// Status aggregates job counts from the store and each lane's health check
// for the status endpoint and CLI.
package workflow
