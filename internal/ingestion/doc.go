// Package ingestion admits source videos into the pipeline. It validates
// uploads and remote URLs against configured media limits, extracts technical
// metadata with ffprobe, and creates the queue record the workflow picks up.
// Validation failures are synchronous and leave no record behind.
package ingestion
