// Package rendering produces the final micro-video files: the original
// footage cut to each segment's window, composited with its narration and
// caption overlay, once per configured output format. Segments are claimed
// before rendering so a duplicate trigger cannot start a second render of the
// same segment.
package rendering
