// Package api serves the pipeline over HTTP.
//
// Routes (chi):
//
//	POST /api/vocal-removal            enqueue, idempotent per source URL
//	GET  /api/vocal-removal?source_url status of one source
//	POST /api/dubbing                  multipart submission, one job per call
//	GET  /api/dubbing                  recent public completed dubbings
//	GET  /api/dubbing/{id}             status of one dubbing job
//	GET  /api/recommendations          current recommendation set
//	POST /api/recommendations/refresh  regenerate the set now
//	GET  /api/status                   workflow lanes and job counts
//	GET  /healthz                      database and lane health
//	GET  /metrics                      Prometheus
//	GET  /media/*                      published outputs
//
// Service holds the request logic so the CLI can reuse it without HTTP.
// Payloads use snake_case JSON; output paths are returned both relative to
// the public directory and as a /media URL.
package api
