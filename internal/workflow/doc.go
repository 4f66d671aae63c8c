// Package workflow advances source videos through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// videos into registered stage handlers (transcriber, analyzer, script writer,
// segmenter, synthesizer, renderer) while capturing progress and failure
// metadata. It also aggregates queue stats and calls stage health checks.
//
// The workflow runs a pool of identical workers. Each worker polls for the
// oldest video whose status starts a stage and claims it with a
// compare-and-swap status transition, so two workers can never execute the
// same video concurrently while distinct videos progress in parallel.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition videos; this package is
// the authoritative home for that coordination logic.
package workflow
