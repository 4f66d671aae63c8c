// Package lesson holds the shared domain records that ride the pipeline:
// transcripts, keypoints, CLT scripts, visual cues, and output descriptors.
// Stages exchange them as JSON blobs persisted on queue rows.
package lesson
