// Package config loads, normalizes, and validates reelscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REELSCRIBE_LEDGER and HF_TOKEN. The Config type centralizes every knob the
// pipeline and CLI need: directories, the ledger columns, yt-dlp search
// thresholds, the language classifier, and the per-language recognition
// model table.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language codes, and clear validation errors.
package config
