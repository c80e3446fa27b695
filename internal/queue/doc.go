// Package queue persists pipeline jobs, the media cache index and the
// recommendation tables in SQLite.
//
// The Store manages the database connection, schema initialization, busy
// retries and the job state machine shared by both job kinds:
//
//	pending -> processing -> completed | failed
//
// Claiming is an atomic conditional update, terminal writes are idempotent,
// and failed records are only removed by the purge that each worker loop runs
// at startup. Nothing is cached in memory between calls; every read goes to the
// database so a restarted process sees exactly what was committed.
//
// Schema changes bump schemaVersion in schema.go; operators clear the database
// to adopt the new schema.
package queue
