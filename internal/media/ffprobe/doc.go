// Package ffprobe inspects media containers with ffprobe.
//
// Prober.Inspect returns the parsed stream and format listing;
// Prober.RequireStreams additionally rejects inputs that are missing an audio
// or video stream, which the dubbing executor uses to validate user uploads
// before spending time on the mix.
package ffprobe
