// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and CLI. Defaults live in defaults.go; Load applies
// file values over defaults, expands ~-prefixed paths, and rejects unusable
// combinations before any subsystem starts.
package config
