// Package recommend periodically samples clips from the active seasons'
// catalog feeds and replaces the stored recommendation set.
//
// Each season points at an all.json listing its episodes. Every episode has a
// <name>/<name>.json document whose clips are collected across all seasons;
// a random subset of the configured size becomes the new set. Seasons or
// episodes that cannot be fetched are skipped, and a pass that finds no clips
// leaves the previous set in place.
package recommend
