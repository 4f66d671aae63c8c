package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"microlesson/internal/config"
	"microlesson/internal/language"
	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/services/whisper"
	"microlesson/internal/stage"
)

// Runner produces a transcript from a source media file.
type Runner interface {
	Transcribe(ctx context.Context, sourcePath, workDir string) (*lesson.Transcript, string, error)
}

// Transcriber is the stage handler for the transcribing status.
type Transcriber struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	runner Runner
}

// NewTranscriber creates a transcriber backed by WhisperX.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	runner := &whisperRunner{
		service: whisper.NewService(whisper.Config{
			Model:       cfg.Whisper.Model,
			CUDAEnabled: cfg.Whisper.CUDAEnabled,
			Language:    language.ToISO2(cfg.Whisper.Language),
		}, cfg.FFmpegBinary()),
	}
	return NewTranscriberWithRunner(cfg, store, logger, runner)
}

// NewTranscriberWithRunner allows injecting the transcription runner (used in tests).
func NewTranscriberWithRunner(cfg *config.Config, store *queue.Store, logger *slog.Logger, runner Runner) *Transcriber {
	return &Transcriber{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "transcription"),
		runner: runner,
	}
}

// Prepare validates the source file and initializes progress messaging.
func (t *Transcriber) Prepare(ctx context.Context, video *queue.Video) error {
	video.ProgressStage = "Transcribing"
	video.ProgressMessage = "Extracting audio"
	video.ProgressPercent = 0

	source := strings.TrimSpace(video.SourcePath)
	if source == "" {
		return services.Wrap(
			services.ErrValidation, "transcription", "prepare",
			"Source path missing; re-ingest the video", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(
			services.ErrValidation, "transcription", "prepare",
			"Source file is no longer readable", err)
	}
	return nil
}

// Execute transcribes the source and stores the normalized transcript.
func (t *Transcriber) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, t.logger)

	workDir := filepath.Join(t.cfg.Paths.StagingDir, fmt.Sprintf("video-%d", video.ID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrTransient, "transcription", "prepare workdir",
			"Failed to create transcription work directory", err)
	}

	transcript, audioPath, err := t.runner.Transcribe(ctx, video.SourcePath, workDir)
	if err != nil {
		return err
	}

	transcript.Normalize()
	if len(transcript.Segments) == 0 {
		return services.Wrap(
			services.ErrExternalService, "transcription", "transcribe",
			"Transcription produced no usable segments", nil)
	}
	if err := transcript.Validate(); err != nil {
		return services.Wrap(
			services.ErrExternalService, "transcription", "transcribe",
			"Transcription produced an inconsistent timeline", err)
	}

	encoded, err := lesson.EncodeTranscript(transcript)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "transcription", "persist transcript",
			"Failed to serialize transcript", err)
	}
	video.TranscriptJSON = encoded
	video.AudioPath = audioPath
	video.ProgressPercent = 100
	video.ProgressMessage = fmt.Sprintf("Transcribed %d segments", len(transcript.Segments))

	logger.Info("transcription finished",
		logging.Int("segments", len(transcript.Segments)),
		logging.Int("words", transcript.Quality.WordCount),
		logging.Float64("overall_confidence", transcript.Quality.OverallConfidence),
		logging.String("language", transcript.Language),
	)
	return nil
}

// HealthCheck verifies the external transcription tooling is reachable.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcription"
	if _, err := exec.LookPath(t.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg not found: %v", err))
	}
	if _, err := exec.LookPath(whisper.UVXCommand); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("uvx not found: %v", err))
	}
	return stage.Healthy(name)
}

// whisperRunner adapts the WhisperX service to the Runner contract.
type whisperRunner struct {
	service *whisper.Service
}

func (r *whisperRunner) Transcribe(ctx context.Context, sourcePath, workDir string) (*lesson.Transcript, string, error) {
	audioPath := filepath.Join(workDir, "audio.wav")
	if err := r.service.ExtractFullAudio(ctx, sourcePath, audioPath); err != nil {
		return nil, "", services.Wrap(
			services.ErrMediaProcessing, "transcription", "extract audio",
			"Audio extraction failed", err)
	}

	result, err := r.service.TranscribeFile(ctx, audioPath, workDir)
	if err != nil {
		return nil, "", services.Wrap(
			services.ErrExternalService, "transcription", "transcribe",
			"WhisperX transcription failed", err)
	}

	segments, lang, err := whisper.LoadSegmentsWithLanguage(result.JSONPath)
	if err != nil {
		return nil, "", services.Wrap(
			services.ErrExternalService, "transcription", "load output",
			"WhisperX output could not be read", err)
	}

	return BuildTranscript(segments, lang), audioPath, nil
}

// BuildTranscript converts WhisperX segments into the lesson transcript
// model, deriving importance scores and key topics locally. The detected
// language is normalized to a two-letter code.
func BuildTranscript(segments []whisper.Segment, lang string) *lesson.Transcript {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	importance := scoreImportance(texts)

	transcript := &lesson.Transcript{Language: normalizeLanguage(lang)}
	for i, seg := range segments {
		transcript.Segments = append(transcript.Segments, lesson.TranscriptSegment{
			ID:         i + 1,
			StartTime:  seg.Start,
			EndTime:    seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: seg.Confidence(),
			Importance: importance[i],
			KeyTopics:  keyTopics(seg.Text),
		})
	}
	return transcript
}

// normalizeLanguage maps detected language words and three-letter codes to
// ISO 639-1. Unrecognized values pass through lowercased.
func normalizeLanguage(lang string) string {
	if normalized := language.ToISO2(lang); normalized != "" {
		return normalized
	}
	return strings.ToLower(strings.TrimSpace(lang))
}
