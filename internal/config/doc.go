// Package config loads, normalizes, and validates peiyin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// PEIYIN_* environment overrides. The Config type centralizes every knob the
// daemon and CLI need: the job database location, private working and cache
// directories, the public output tree served to clients, and the external
// tool settings used by the media pipelines.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
