// Package segmentation maps the generated lesson script back onto the source
// video timeline. Each script phase is matched against the transcript by token
// overlap, producing one ordered micro segment per phase with an alignment
// confidence. When no confident mapping exists the stage falls back to
// dividing the video proportionally across phases.
package segmentation
