package rendering

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"microlesson/internal/config"
	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/testsupport"
)

type stubComposer struct {
	cuts          int
	composites    int
	overlays      []string
	failComposite bool
}

func (s *stubComposer) Cut(ctx context.Context, source string, startSec, endSec float64, dest string) error {
	s.cuts++
	return os.WriteFile(dest, []byte("clip"), 0o644)
}

func (s *stubComposer) Composite(ctx context.Context, clipPath, audioPath string, clipDuration, audioDuration float64, policy config.MismatchPolicy, overlayText, dest string) error {
	s.composites++
	s.overlays = append(s.overlays, overlayText)
	if s.failComposite {
		return errors.New("encoder exited with status 1")
	}
	return os.WriteFile(dest, []byte("rendered"), 0o644)
}

func renderableVideo(t *testing.T, cfg *config.Config, store *queue.Store) *queue.Video {
	t.Helper()
	source := filepath.Join(cfg.Paths.StagingDir, "source.mp4")
	testsupport.WriteFile(t, source, 2048)
	video := testsupport.NewUpload(t, store, "Lesson", source)

	audio := filepath.Join(cfg.Paths.StagingDir, "narration.wav")
	testsupport.WriteFile(t, audio, 128)
	segments := []*queue.Segment{
		{Sequence: 1, Phase: "prepare", StartTime: 0, EndTime: 20, ScriptText: "a",
			AudioPath: audio, AudioDuration: 19, Status: queue.SegmentSegmented},
		{Sequence: 2, Phase: "deliver", StartTime: 20, EndTime: 60, ScriptText: "b",
			AudioPath: audio, AudioDuration: 44, Status: queue.SegmentSegmented},
	}
	if err := store.ReplaceSegments(context.Background(), video.ID, segments); err != nil {
		t.Fatal(err)
	}
	return video
}

func TestExecuteRendersAllSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := renderableVideo(t, cfg, store)

	composer := &stubComposer{}
	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), composer)
	if err := ren.Prepare(context.Background(), video); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := ren.Execute(context.Background(), video); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if composer.cuts != 2 || composer.composites != 2 {
		t.Errorf("expected 2 cuts and 2 composites, got %d/%d", composer.cuts, composer.composites)
	}

	segments, err := store.SegmentsForVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, seg := range segments {
		if seg.Status != queue.SegmentRendered {
			t.Errorf("segment %d status %s", seg.Sequence, seg.Status)
		}
		if seg.OutputPath == "" {
			t.Fatalf("segment %d has no output path", seg.Sequence)
		}
		if _, err := os.Stat(seg.OutputPath); err != nil {
			t.Errorf("output missing for segment %d: %v", seg.Sequence, err)
		}
	}

	outputs, err := lesson.DecodeOutputFiles(video.OutputsJSON)
	if err != nil {
		t.Fatalf("DecodeOutputFiles: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("expected 2 output records, got %d", len(outputs))
	}
	if outputs[0].Format != "mp4" || outputs[0].SizeBytes == 0 {
		t.Errorf("output record incomplete: %+v", outputs[0])
	}
	// Narration of 44s over a 40s window held on the last frame.
	if outputs[1].DurationSeconds != 44 {
		t.Errorf("output duration %.1f, expected 44", outputs[1].DurationSeconds)
	}
}

func TestExecuteFailureMarksSegmentFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := renderableVideo(t, cfg, store)

	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), &stubComposer{failComposite: true})
	err := ren.Execute(context.Background(), video)
	if !errors.Is(err, services.ErrMediaProcessing) {
		t.Fatalf("expected media processing error, got %v", err)
	}

	seg, err := store.SegmentBySequence(context.Background(), video.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Status != queue.SegmentFailed {
		t.Errorf("segment status %s, expected failed", seg.Status)
	}
	if seg.ErrorMessage == "" {
		t.Error("expected an error message on the failed segment")
	}
	if seg.OutputPath != "" {
		t.Error("failed segment must not reference an output file")
	}
	outDir := filepath.Join(cfg.Paths.OutputDir, outputDirName(video))
	if entries, err := os.ReadDir(outDir); err == nil && len(entries) > 0 {
		t.Errorf("expected no output files, found %d", len(entries))
	}
}

func TestExecuteRequiresNarration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := testsupport.NewUpload(t, store, "Silent", "/src/silent.mp4")
	segments := []*queue.Segment{
		{Sequence: 1, Phase: "prepare", StartTime: 0, EndTime: 20, Status: queue.SegmentSegmented},
	}
	if err := store.ReplaceSegments(context.Background(), video.ID, segments); err != nil {
		t.Fatal(err)
	}

	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), &stubComposer{})
	if err := ren.Execute(context.Background(), video); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRenderSegmentConflictWhileRendering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := renderableVideo(t, cfg, store)

	seg, err := store.SegmentBySequence(context.Background(), video.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	seg.Status = queue.SegmentRendering
	if err := store.UpdateSegment(context.Background(), seg); err != nil {
		t.Fatal(err)
	}

	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), &stubComposer{})
	if _, err := ren.RenderSegment(context.Background(), video.ID, 1); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRenderSegmentReRendersCompletedSegment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := renderableVideo(t, cfg, store)

	seg, err := store.SegmentBySequence(context.Background(), video.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	seg.Status = queue.SegmentRendered
	if err := store.UpdateSegment(context.Background(), seg); err != nil {
		t.Fatal(err)
	}

	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), &stubComposer{})
	rendered, err := ren.RenderSegment(context.Background(), video.ID, 2)
	if err != nil {
		t.Fatalf("RenderSegment: %v", err)
	}
	if rendered.Status != queue.SegmentRendered {
		t.Errorf("status %s, expected rendered", rendered.Status)
	}
	if rendered.OutputPath == "" {
		t.Error("expected an output path")
	}
}

func TestRenderSegmentUnknownSequence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := renderableVideo(t, cfg, store)

	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), &stubComposer{})
	if _, err := ren.RenderSegment(context.Background(), video.ID, 99); !errors.Is(err, queue.ErrSegmentNotFound) {
		t.Fatalf("expected segment not found, got %v", err)
	}
}

func TestExecutePassesAnchoredOverlay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := renderableVideo(t, cfg, store)

	cues := []lesson.VisualCue{
		{Phase: lesson.PhasePrepare, BackgroundStyle: "gradient", Animation: "fade"},
		{Phase: lesson.PhaseDeliver, Concept: "recursion", OverlayText: "Recursion: solve smaller first",
			Animation: "slide-in", Anchor: &lesson.TimeRange{Start: 25, End: 40}},
	}
	var err error
	if video.VisualCuesJSON, err = lesson.EncodeVisualCues(cues); err != nil {
		t.Fatal(err)
	}

	composer := &stubComposer{}
	ren := NewRendererWithComposer(cfg, store, logging.NewNop(), composer)
	if err := ren.Execute(context.Background(), video); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(composer.overlays) != 2 {
		t.Fatalf("expected 2 composites, got %d", len(composer.overlays))
	}
	if composer.overlays[0] != "" {
		t.Errorf("segment 1 overlay %q, expected none", composer.overlays[0])
	}
	if composer.overlays[1] != "Recursion: solve smaller first" {
		t.Errorf("segment 2 overlay %q", composer.overlays[1])
	}
}

func TestOutputDirName(t *testing.T) {
	cases := []struct {
		title string
		id    int64
		want  string
	}{
		{"Photosynthesis Basics!", 3, "video-3-photosynthesis_basics"},
		{"Ohm's Law", 7, "video-7-ohm_s_law"},
		{"", 12, "video-12"},
		{"///", 4, "video-4"},
	}
	for _, tc := range cases {
		got := outputDirName(&queue.Video{ID: tc.id, Title: tc.title})
		if got != tc.want {
			t.Errorf("outputDirName(%q) = %q, expected %q", tc.title, got, tc.want)
		}
	}
}
