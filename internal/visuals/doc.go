// Package visuals generates advisory overlay metadata for rendering: a
// background and animation treatment per script phase plus text overlays for
// keypoints whose timeline alignment is trusted. The cues never change
// segment timing.
package visuals
