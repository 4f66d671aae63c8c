// Package encoder drives ffmpeg to cut segment clips from source videos and
// to composite narration audio onto those clips for final rendering.
package encoder
