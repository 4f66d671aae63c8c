// Package logging wires log/slog with the handlers and field conventions
// shared across the daemon: a compact console handler for interactive use, a
// JSON handler for machine consumption, and standardized attribute keys so
// stage logs stay greppable.
package logging
