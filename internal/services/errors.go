package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad input media, URLs, or parameters. Surfaced
	// synchronously; no queue row is created for a validation failure.
	ErrValidation = errors.New("validation error")
	// ErrExternalService marks transcription/generation/TTS failures and
	// schema-invalid responses from external collaborators.
	ErrExternalService = errors.New("external service error")
	// ErrMediaProcessing marks encode/decode/composite failures.
	ErrMediaProcessing = errors.New("media processing error")
	// ErrAlignment marks a missing confident time-mapping. Recoverable: the
	// segmentation stage falls back to proportional division.
	ErrAlignment = errors.New("alignment error")
	// ErrConflict marks duplicate triggers for work already in flight.
	ErrConflict = errors.New("conflict error")
	// ErrNotFound marks references to absent records.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks unusable runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails carries the structured pieces of a wrapped stage error for
// logging and API responses.
type ErrorDetails struct {
	Kind    string
	Message string
	Cause   error
}

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrValidation, "validation"},
	{ErrExternalService, "external_service"},
	{ErrMediaProcessing, "media_processing"},
	{ErrAlignment, "alignment"},
	{ErrConflict, "conflict"},
	{ErrNotFound, "not_found"},
	{ErrConfiguration, "configuration"},
	{ErrTransient, "transient"},
}

// Details classifies an error against the sentinel markers and extracts a
// human-readable message with the marker prefix stripped.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "transient", Message: err.Error(), Cause: err}
	for _, entry := range markerKinds {
		if errors.Is(err, entry.marker) {
			details.Kind = entry.kind
			details.Message = strings.TrimSpace(strings.TrimPrefix(err.Error(), entry.marker.Error()+":"))
			break
		}
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
