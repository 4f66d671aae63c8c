// Package synthesis narrates micro segments. Each segment's script text is
// sent to the configured speech backend and the returned audio is staged on
// disk next to the video's other intermediate artifacts.
package synthesis
