// Package config loads, normalizes, and validates the TOML configuration for
// the micro-lesson daemon and CLI.
package config
