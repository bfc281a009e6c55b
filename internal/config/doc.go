// Package config loads, normalizes, and validates booksum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ISBNDB_API_KEY, OLLAMA_HOST and DATABASE_URL. The Config type centralizes
// every knob the worker daemon and CLI need, from provider credentials to
// broker lease timing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
