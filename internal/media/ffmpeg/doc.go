// Package ffmpeg builds and runs the ffmpeg invocations used by the dubbing
// pipelines: audio extraction, video muting, two-track mixing, audio
// replacement and forced-square vertical stacking.
//
// Commands are assembled with Builder and executed through a
// toolrun.Executor so tests can substitute a fake binary.
package ffmpeg
