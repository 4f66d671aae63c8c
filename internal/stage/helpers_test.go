package stage

import (
	"errors"
	"testing"

	"microlesson/internal/services"
)

func TestLoadTranscript_Valid(t *testing.T) {
	raw := `{"segments":[{"id":1,"startTime":0,"endTime":5,"text":"hello","confidence":0.9}]}`
	transcript, err := LoadTranscript(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transcript.Segments) != 1 {
		t.Fatalf("unexpected segment count: %d", len(transcript.Segments))
	}
}

func TestLoadTranscript_Empty(t *testing.T) {
	_, err := LoadTranscript("")
	if err == nil {
		t.Fatal("expected error for empty transcript")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadScript_Invalid(t *testing.T) {
	_, err := LoadScript("{invalid json")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadKeypoints_Invalid(t *testing.T) {
	if _, err := LoadKeypoints("not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
