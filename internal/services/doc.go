// Package services defines shared utilities consumed by the pipeline executors
// and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers, job kinds, step names, lanes
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures recorded on a
//     job keep the step and operation that produced them.
//
// Tool adapters live in subpackages (demucs) and wrap their failures with these
// markers so callers can classify them without string matching.
package services
