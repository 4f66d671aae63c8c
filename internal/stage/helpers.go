package stage

import (
	"microlesson/internal/lesson"
	"microlesson/internal/services"
)

// LoadTranscript decodes the transcript stored on a video row.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func LoadTranscript(raw string) (*lesson.Transcript, error) {
	if raw == "" {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load transcript",
			"Transcript missing; rerun transcription", nil)
	}
	transcript, err := lesson.DecodeTranscript(raw)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load transcript",
			"Transcript invalid; rerun transcription", err)
	}
	return transcript, nil
}

// LoadKeypoints decodes the keypoints stored on a video row.
func LoadKeypoints(raw string) ([]lesson.Keypoint, error) {
	if raw == "" {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load keypoints",
			"Keypoints missing; rerun analysis", nil)
	}
	points, err := lesson.DecodeKeypoints(raw)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load keypoints",
			"Keypoints invalid; rerun analysis", err)
	}
	return points, nil
}

// LoadScript decodes the script stored on a video row.
func LoadScript(raw string) (*lesson.Script, error) {
	if raw == "" {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load script",
			"Script missing; rerun script generation", nil)
	}
	script, err := lesson.DecodeScript(raw)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load script",
			"Script invalid; rerun script generation", err)
	}
	return script, nil
}
