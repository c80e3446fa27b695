// Package dubbing runs composite-dubbing jobs.
//
// Audio requests mix the user's recording with the source clip's background
// track and lay the mix under the muted source picture. Video requests
// stretch the source picture and the user's video to the same square size and
// stack them, source on top, keeping only the user's audio.
//
// Uploaded media is checked before any tool runs: a missing file fails the
// job as a data error, and ffprobe rejects uploads lacking the stream the mode
// needs.
package dubbing
