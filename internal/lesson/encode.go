package lesson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeTranscript serializes a transcript for storage on a queue row.
func EncodeTranscript(t *Transcript) (string, error) {
	return encode(t, "transcript")
}

// DecodeTranscript parses a stored transcript blob.
func DecodeTranscript(raw string) (*Transcript, error) {
	var t Transcript
	if err := decode(raw, &t, "transcript"); err != nil {
		return nil, err
	}
	return &t, nil
}

// EncodeKeypoints serializes keypoints for storage on a queue row.
func EncodeKeypoints(points []Keypoint) (string, error) {
	return encode(points, "keypoints")
}

// DecodeKeypoints parses a stored keypoints blob.
func DecodeKeypoints(raw string) ([]Keypoint, error) {
	var points []Keypoint
	if err := decode(raw, &points, "keypoints"); err != nil {
		return nil, err
	}
	return points, nil
}

// EncodeScript serializes a script for storage on a queue row.
func EncodeScript(s *Script) (string, error) {
	return encode(s, "script")
}

// DecodeScript parses a stored script blob.
func DecodeScript(raw string) (*Script, error) {
	var s Script
	if err := decode(raw, &s, "script"); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeVisualCues serializes visual cues for storage on a segment row.
func EncodeVisualCues(cues []VisualCue) (string, error) {
	return encode(cues, "visual cues")
}

// DecodeVisualCues parses a stored visual cue blob.
func DecodeVisualCues(raw string) ([]VisualCue, error) {
	var cues []VisualCue
	if err := decode(raw, &cues, "visual cues"); err != nil {
		return nil, err
	}
	return cues, nil
}

// EncodeOutputFiles serializes rendered output descriptors.
func EncodeOutputFiles(files []OutputFile) (string, error) {
	return encode(files, "output files")
}

// DecodeOutputFiles parses stored output descriptors.
func DecodeOutputFiles(raw string) ([]OutputFile, error) {
	var files []OutputFile
	if err := decode(raw, &files, "output files"); err != nil {
		return nil, err
	}
	return files, nil
}

func encode(value any, label string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", label, err)
	}
	return string(raw), nil
}

func decode(raw string, target any, label string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("decode %s: empty payload", label)
	}
	if err := json.Unmarshal([]byte(trimmed), target); err != nil {
		return fmt.Errorf("decode %s: %w", label, err)
	}
	return nil
}
