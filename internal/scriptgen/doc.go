// Package scriptgen runs the script generation stage. It turns keypoints into
// a four-phase lesson script, chooses a target Bloom level from the content's
// difficulty profile, optimizes total duration into the configured tolerance
// window, and enriches each phase with scaffolding and a cognitive load
// profile.
package scriptgen
