// Package transcription runs the speech-to-text stage: it extracts the audio
// track, invokes WhisperX, and persists a normalized transcript with
// per-segment confidence and importance scores on the queue row.
package transcription
