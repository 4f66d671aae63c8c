package segmentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"microlesson/internal/config"
	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/stage"
)

// Segmenter is the stage handler that turns a scripted lesson into ordered
// micro segments on the source timeline.
type Segmenter struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

func NewSegmenter(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Segmenter {
	return &Segmenter{cfg: cfg, store: store, logger: logging.NewComponentLogger(logger, "segmentation")}
}

func (s *Segmenter) Prepare(ctx context.Context, video *queue.Video) error {
	video.ProgressStage = "Segmenting"
	video.ProgressMessage = "Aligning script onto the source timeline"
	video.ProgressPercent = 0
	return nil
}

// Execute aligns every script phase onto the transcript and persists the
// resulting segments, replacing any from an earlier run.
func (s *Segmenter) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, s.logger)

	script, err := stage.LoadScript(video.ScriptJSON)
	if err != nil {
		return err
	}
	transcript, err := stage.LoadTranscript(video.TranscriptJSON)
	if err != nil {
		return err
	}
	duration := video.DurationSeconds
	if duration <= 0 && len(transcript.Segments) > 0 {
		duration = transcript.Segments[len(transcript.Segments)-1].EndTime
	}
	if duration <= 0 {
		return services.Wrap(
			services.ErrValidation, "segmentation", "check duration",
			"Source video has no usable duration", nil)
	}

	segments, err := s.alignScript(script, transcript, duration)
	if err != nil {
		if !errors.Is(err, services.ErrAlignment) {
			return err
		}
		logger.Warn("no confident alignment; dividing video proportionally across phases",
			logging.Error(err))
		segments = fallbackSegments(script, duration)
	}

	if err := s.store.ReplaceSegments(ctx, video.ID, segments); err != nil {
		return fmt.Errorf("replace segments: %w", err)
	}

	video.ProgressPercent = 100
	video.ProgressMessage = fmt.Sprintf("Segmented into %d micro segments", len(segments))
	logger.Info("segmentation completed",
		logging.Int("segments", len(segments)),
		logging.Bool("anchored", segments[0].Anchored),
	)
	return nil
}

// HealthCheck always reports ready; alignment needs no external service.
func (s *Segmenter) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("segmentation")
}

// alignScript walks the phases in order, constraining each phase's window to
// start after the previous phase's so segments never overlap.
func (s *Segmenter) alignScript(script *lesson.Script, transcript *lesson.Transcript, duration float64) ([]*queue.Segment, error) {
	minConfidence := s.cfg.Alignment.MinPhaseConfidence
	cursor := 0
	prevEnd := 0.0
	segments := make([]*queue.Segment, 0, len(script.Phases))

	for i, phase := range script.Phases {
		al, ok := alignPhase(transcript.Segments, cursor, phase.Content)
		if !ok || al.Confidence < minConfidence {
			return nil, services.Wrap(
				services.ErrAlignment, "segmentation", "align phase",
				fmt.Sprintf("No confident time mapping for phase %q", phase.Name), nil)
		}
		al = extendToSentenceBoundary(transcript.Segments, al)

		start := math.Max(al.Range.Start, prevEnd)
		end := math.Min(al.Range.End, duration)
		if end <= start {
			return nil, services.Wrap(
				services.ErrAlignment, "segmentation", "align phase",
				fmt.Sprintf("Phase %q aligned to an empty time range", phase.Name), nil)
		}

		segments = append(segments, &queue.Segment{
			Sequence:   i + 1,
			Phase:      string(phase.Name),
			StartTime:  start,
			EndTime:    end,
			ScriptText: phase.Content,
			Anchored:   true,
			Confidence: al.Confidence,
			Status:     queue.SegmentSegmented,
		})
		cursor = al.Last + 1
		prevEnd = end
	}
	return segments, nil
}

// fallbackSegments divides the full video across phases by their scripted
// durations. Segments produced this way carry no alignment anchor.
func fallbackSegments(script *lesson.Script, duration float64) []*queue.Segment {
	spans := proportionalSpans(script, duration)
	segments := make([]*queue.Segment, 0, len(spans))
	for i, phase := range script.Phases {
		segments = append(segments, &queue.Segment{
			Sequence:   i + 1,
			Phase:      string(phase.Name),
			StartTime:  spans[i].Start,
			EndTime:    spans[i].End,
			ScriptText: phase.Content,
			Anchored:   false,
			Confidence: 0,
			Status:     queue.SegmentSegmented,
		})
	}
	return segments
}
