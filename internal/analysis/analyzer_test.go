package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/testsupport"
)

type stubGenerator struct {
	payload   string
	err       error
	healthErr error
	prompts   []string
}

func (s *stubGenerator) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.payload, s.err
}

func (s *stubGenerator) HealthCheck(ctx context.Context) error { return s.healthErr }

func keypointJSON(t *testing.T, count int) string {
	t.Helper()
	var points []map[string]any
	for i := 0; i < count; i++ {
		points = append(points, map[string]any{
			"concept":     fmt.Sprintf("concept %d", i+1),
			"description": "a described concept",
			"importance":  0.8,
			"bloomLevel":  "understand",
			"difficulty":  "intermediate",
			"examples":    []string{"example"},
		})
	}
	raw, err := json.Marshal(map[string]any{"keypoints": points})
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func videoWithTranscript(t *testing.T, store *queue.Store, transcript *lesson.Transcript) *queue.Video {
	t.Helper()
	video := testsupport.NewUpload(t, store, "Graphs", "/src/graphs.mp4")
	encoded, err := lesson.EncodeTranscript(transcript)
	if err != nil {
		t.Fatal(err)
	}
	video.TranscriptJSON = encoded
	return video
}

func analysisTranscript() *lesson.Transcript {
	transcript := &lesson.Transcript{
		Language: "en",
		Segments: []lesson.TranscriptSegment{
			{ID: 1, StartTime: 0, EndTime: 10, Text: "Concept 1 is introduced with an example.", Confidence: 0.9, Importance: 0.9},
			{ID: 2, StartTime: 10, EndTime: 20, Text: "Some filler talk between ideas.", Confidence: 0.8, Importance: 0.2},
			{ID: 3, StartTime: 20, EndTime: 30, Text: "Concept 2 builds on concept 1 directly.", Confidence: 0.85, Importance: 0.8},
		},
	}
	return transcript
}

func TestExecuteStoresValidatedKeypoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := videoWithTranscript(t, store, analysisTranscript())

	gen := &stubGenerator{payload: keypointJSON(t, 10)}
	a := NewAnalyzerWithGenerator(cfg, store, logging.NewNop(), gen)

	if err := a.Prepare(context.Background(), video); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := a.Execute(context.Background(), video); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	keypoints, err := lesson.DecodeKeypoints(video.KeypointsJSON)
	if err != nil {
		t.Fatalf("DecodeKeypoints: %v", err)
	}
	if len(keypoints) != 10 {
		t.Fatalf("expected 10 keypoints, got %d", len(keypoints))
	}
	for _, kp := range keypoints {
		if kp.CognitiveLoadEstimate < 0 || kp.CognitiveLoadEstimate > 1 {
			t.Errorf("cognitive load estimate out of range for %q: %f", kp.Concept, kp.CognitiveLoadEstimate)
		}
		if kp.LearningTimeEstimate <= 0 {
			t.Errorf("learning time should be positive for %q", kp.Concept)
		}
	}
	// "concept 1" appears in segments 1 and 3 case-insensitively.
	if got := keypoints[0].RelatedSegmentIDs; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("unexpected related segments for %q: %v", keypoints[0].Concept, got)
	}
	if keypoints[0].TotalDuration != 20 {
		t.Errorf("unexpected total duration: %f", keypoints[0].TotalDuration)
	}
}

func TestExecutePromptUsesImportantSegmentsOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := videoWithTranscript(t, store, analysisTranscript())

	gen := &stubGenerator{payload: keypointJSON(t, 8)}
	a := NewAnalyzerWithGenerator(cfg, store, logging.NewNop(), gen)
	if err := a.Execute(context.Background(), video); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gen.prompts))
	}
	if strings.Contains(gen.prompts[0], "filler talk") {
		t.Error("low-importance segment should not reach the prompt")
	}
	if !strings.Contains(gen.prompts[0], "Concept 1 is introduced") {
		t.Error("high-importance segment missing from the prompt")
	}
}

func TestExecuteRejectsWrongKeypointCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := videoWithTranscript(t, store, analysisTranscript())

	gen := &stubGenerator{payload: keypointJSON(t, 3)}
	a := NewAnalyzerWithGenerator(cfg, store, logging.NewNop(), gen)
	if err := a.Execute(context.Background(), video); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestExecuteRejectsInvalidSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	payloads := []string{
		`{"keypoints":[]}`,
		`not json at all`,
		strings.Replace(keypointJSON(t, 8), "understand", "memorize", 1),
		strings.Replace(keypointJSON(t, 8), "intermediate", "expert", 1),
		strings.Replace(keypointJSON(t, 8), `"importance":0.8`, `"importance":2.5`, 1),
	}
	for _, payload := range payloads {
		video := videoWithTranscript(t, store, analysisTranscript())
		gen := &stubGenerator{payload: payload}
		a := NewAnalyzerWithGenerator(cfg, store, logging.NewNop(), gen)
		if err := a.Execute(context.Background(), video); !errors.Is(err, services.ErrExternalService) {
			t.Errorf("payload %d: expected external service error, got %v", len(payload), err)
		}
	}
}

func TestExecuteRequiresTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewUpload(t, store, "No transcript", "/src/x.mp4")

	a := NewAnalyzerWithGenerator(cfg, store, logging.NewNop(), &stubGenerator{})
	if err := a.Execute(context.Background(), video); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSelectSegmentsCapsAndFallsBack(t *testing.T) {
	var segments []lesson.TranscriptSegment
	for i := 0; i < 30; i++ {
		segments = append(segments, lesson.TranscriptSegment{
			ID:         i + 1,
			StartTime:  float64(i * 10),
			EndTime:    float64(i*10 + 10),
			Text:       fmt.Sprintf("segment %d", i+1),
			Importance: 0.61 + float64(i)*0.01,
		})
	}
	selected := selectSegments(segments)
	if len(selected) != maxPromptSegments {
		t.Fatalf("expected cap of %d, got %d", maxPromptSegments, len(selected))
	}
	for i := 1; i < len(selected); i++ {
		if selected[i].StartTime < selected[i-1].StartTime {
			t.Fatal("selected segments should be in timeline order")
		}
	}

	lowImportance := []lesson.TranscriptSegment{
		{ID: 1, StartTime: 0, EndTime: 5, Importance: 0.1},
		{ID: 2, StartTime: 5, EndTime: 10, Importance: 0.3},
	}
	if got := selectSegments(lowImportance); len(got) != 2 {
		t.Fatalf("fallback should keep all segments, got %d", len(got))
	}
}

func TestEnhanceKeypointClampsLoad(t *testing.T) {
	kp := lesson.Keypoint{
		Concept:    "recursion",
		BloomLevel: lesson.BloomCreate,
		Difficulty: lesson.DifficultyAdvanced,
	}
	segments := []lesson.TranscriptSegment{
		{ID: 1, StartTime: 0, EndTime: 10, Text: "recursion recursion recursion", Confidence: 0.9},
	}
	enhanceKeypoint(&kp, segments)
	if kp.CognitiveLoadEstimate < 0 || kp.CognitiveLoadEstimate > 1 {
		t.Errorf("cognitive load estimate out of range: %f", kp.CognitiveLoadEstimate)
	}
	if len(kp.RelatedSegmentIDs) != 1 {
		t.Errorf("expected one related segment, got %v", kp.RelatedSegmentIDs)
	}
	if kp.AverageConfidence != 0.9 {
		t.Errorf("unexpected average confidence: %f", kp.AverageConfidence)
	}
}
