// Package whisper provides WhisperX transcription utilities for the
// transcription stage.
//
// This package handles:
//   - Audio extraction from source videos (mono 16kHz WAV via ffmpeg)
//   - WhisperX transcription invocation
//   - Loading timed, scored segments from the WhisperX JSON output
//
// Configuration options (model, CUDA, language) are passed via Config. Tests
// inject a command runner so no external binaries are required.
package whisper
