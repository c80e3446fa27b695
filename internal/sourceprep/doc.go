// Package sourceprep obtains the intermediate artifacts of a source clip,
// preferring the media cache and otherwise downloading and processing the
// clip once, seeding the cache for every later job against the same URL.
package sourceprep
