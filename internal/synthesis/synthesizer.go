package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"microlesson/internal/config"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/services/tts"
	"microlesson/internal/stage"
)

// Speech is the synthesis backend. Satisfied by *tts.Client.
type Speech interface {
	Synthesize(ctx context.Context, text string) (tts.Result, error)
	HealthCheck(ctx context.Context) error
}

// Synthesizer is the stage handler that narrates every micro segment.
type Synthesizer struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	speech Speech
}

func NewSynthesizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Synthesizer {
	client := tts.NewClient(tts.Config{
		BaseURL:        cfg.TTS.BaseURL,
		APIKey:         cfg.TTS.APIKey,
		Voice:          cfg.TTS.Voice,
		Speed:          cfg.TTS.Speed,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	return NewSynthesizerWithSpeech(cfg, store, logger, client)
}

func NewSynthesizerWithSpeech(cfg *config.Config, store *queue.Store, logger *slog.Logger, speech Speech) *Synthesizer {
	return &Synthesizer{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "synthesis"),
		speech: speech,
	}
}

func (s *Synthesizer) Prepare(ctx context.Context, video *queue.Video) error {
	video.ProgressStage = "Synthesizing"
	video.ProgressMessage = "Narrating micro segments"
	video.ProgressPercent = 0
	return nil
}

// Execute synthesizes narration for each segment in sequence order. A length
// mismatch against the segment's allotted time is logged, not fatal; rendering
// reconciles it.
func (s *Synthesizer) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, s.logger)

	segments, err := s.store.SegmentsForVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load segments: %w", err)
	}
	if len(segments) == 0 {
		return services.Wrap(
			services.ErrValidation, "synthesis", "load segments",
			"No segments found; rerun segmentation", nil)
	}

	dir := filepath.Join(s.cfg.Paths.StagingDir, fmt.Sprintf("video-%d", video.ID), "narration")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create narration dir: %w", err)
	}

	for i, seg := range segments {
		result, err := s.speech.Synthesize(ctx, seg.ScriptText)
		if err != nil {
			return services.Wrap(
				services.ErrExternalService, "synthesis", "synthesize narration",
				fmt.Sprintf("Speech synthesis failed for segment %d", seg.Sequence), err)
		}

		path := filepath.Join(dir, fmt.Sprintf("segment-%02d.wav", seg.Sequence))
		if err := writeAudio(path, result.Audio); err != nil {
			return fmt.Errorf("write narration: %w", err)
		}

		if drift := math.Abs(result.DurationSeconds - seg.Duration()); drift > 1.0 {
			logger.Warn("narration length differs from segment window",
				logging.Int("sequence", seg.Sequence),
				logging.Float64("narration_seconds", result.DurationSeconds),
				logging.Float64("segment_seconds", seg.Duration()),
			)
		}

		seg.AudioPath = path
		seg.AudioDuration = result.DurationSeconds
		if err := s.store.UpdateSegment(ctx, seg); err != nil {
			return fmt.Errorf("update segment %d: %w", seg.Sequence, err)
		}
		video.ProgressPercent = float64(i+1) / float64(len(segments)) * 100
	}

	video.ProgressMessage = fmt.Sprintf("Narrated %d segments", len(segments))
	logger.Info("synthesis completed", logging.Int("segments", len(segments)))
	return nil
}

// HealthCheck verifies the speech backend accepts requests.
func (s *Synthesizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "synthesis"
	if err := s.speech.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// writeAudio stages the audio under a temp name and renames it into place so
// a crash never leaves a segment pointing at a half-written file.
func writeAudio(path string, audio []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
