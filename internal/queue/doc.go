// Package queue persists source videos and their micro-lesson segments in
// SQLite and exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-item recovery, and status transitions
// that mirror the public workflow enum. Video rows capture progress, probe
// metadata, and the JSON artifacts each stage produces (transcript, keypoints,
// script, visual cues, outputs) so stages can coordinate without additional
// state. Segment rows carry the per-segment render lifecycle, including the
// compare-and-swap claim that serializes concurrent render requests.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or artifact columns, update schema.sql and bump
// schemaVersion.
package queue
