// Package demucs wraps the demucs source-separation CLI in two-stem mode.
//
// Demucs writes its stems under <out>/<model>/<track>/, but the model
// directory it actually uses is not guaranteed to match the requested model
// name across releases. Separate therefore searches the requested model
// first, then a list of known model directories, then any directory, and
// reports ErrOutputNotFound (distinct from a non-zero exit) when none of them
// contain the accompaniment stem.
package demucs
