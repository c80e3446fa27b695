// Package mediacache maps (source URL, artifact kind) to intermediate media
// files that are expensive to recompute: the accompaniment-only audio track
// and the muted video of a source clip.
//
// Files are named deterministically from the URL hash, so a given source
// always maps to the same paths. A row whose file has disappeared is reported
// as a miss, never as an error. Entries are never updated or evicted; Stats
// warns when the cache filesystem runs low on space.
package mediacache
