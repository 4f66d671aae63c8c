// Package tts wraps the text-to-speech HTTP API used to produce narration
// audio for micro-lesson segments.
package tts
