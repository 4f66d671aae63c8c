package rendering

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"microlesson/internal/config"
	"microlesson/internal/fileutil"
	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/media/encoder"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/stage"
	"microlesson/internal/textutil"
)

// Composer is the subset of the encoder the renderer needs.
type Composer interface {
	Cut(ctx context.Context, source string, startSec, endSec float64, dest string) error
	Composite(ctx context.Context, clipPath, audioPath string, clipDuration, audioDuration float64, policy config.MismatchPolicy, overlayText, dest string) error
}

// Renderer is the stage handler for the rendering status. It also serves
// single-segment re-renders triggered through the API.
type Renderer struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	composer Composer
}

func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Renderer {
	return NewRendererWithComposer(cfg, store, logger, encoder.NewEncoder(cfg.FFmpegBinary()))
}

func NewRendererWithComposer(cfg *config.Config, store *queue.Store, logger *slog.Logger, composer Composer) *Renderer {
	return &Renderer{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "rendering"),
		composer: composer,
	}
}

func (r *Renderer) Prepare(ctx context.Context, video *queue.Video) error {
	if _, err := os.Stat(video.SourcePath); err != nil {
		return services.Wrap(
			services.ErrValidation, "rendering", "check source",
			"Source video file is missing", err)
	}
	video.ProgressStage = "Rendering"
	video.ProgressMessage = "Rendering micro videos"
	video.ProgressPercent = 0
	return nil
}

// Execute renders every segment of the video in sequence order. A failed
// segment halts the run with its status set to failed and no output file
// recorded.
func (r *Renderer) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, r.logger)

	segments, err := r.store.SegmentsForVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load segments: %w", err)
	}
	if len(segments) == 0 {
		return services.Wrap(
			services.ErrValidation, "rendering", "load segments",
			"No segments found; rerun segmentation", nil)
	}
	cues := loadCues(video)

	var outputs []lesson.OutputFile
	for i, seg := range segments {
		claimed, ok, err := r.store.ClaimSegmentRender(ctx, video.ID, seg.Sequence)
		if err != nil {
			return fmt.Errorf("claim segment %d: %w", seg.Sequence, err)
		}
		if !ok {
			return services.Wrap(
				services.ErrConflict, "rendering", "claim segment",
				fmt.Sprintf("Segment %d is already rendering", seg.Sequence), nil)
		}

		files, err := r.renderSegment(ctx, video, claimed, overlayFor(cues, claimed))
		if err != nil {
			claimed.Status = queue.SegmentFailed
			claimed.ErrorMessage = err.Error()
			if updateErr := r.store.UpdateSegment(ctx, claimed); updateErr != nil {
				logger.Error("failed to record segment failure", logging.Error(updateErr))
			}
			return err
		}

		claimed.Status = queue.SegmentRendered
		claimed.ErrorMessage = ""
		claimed.OutputPath = files[0].Path
		if err := r.store.UpdateSegment(ctx, claimed); err != nil {
			return fmt.Errorf("update segment %d: %w", claimed.Sequence, err)
		}
		outputs = append(outputs, files...)
		video.ProgressPercent = float64(i+1) / float64(len(segments)) * 100
	}

	encoded, err := lesson.EncodeOutputFiles(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	video.OutputsJSON = encoded
	video.ProgressMessage = fmt.Sprintf("Rendered %d output files", len(outputs))
	logger.Info("rendering completed",
		logging.Int("segments", len(segments)),
		logging.Int("outputs", len(outputs)),
	)
	return nil
}

// HealthCheck verifies ffmpeg is available.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	const name = "rendering"
	if _, err := exec.LookPath(r.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg not found: %v", err))
	}
	return stage.Healthy(name)
}

// RenderSegment re-renders one segment on demand. A segment already in the
// rendering state cannot be claimed and yields ErrConflict.
func (r *Renderer) RenderSegment(ctx context.Context, videoID int64, sequence int) (*queue.Segment, error) {
	video, err := r.store.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(
			services.ErrNotFound, "rendering", "load video",
			fmt.Sprintf("Video %d not found", videoID), nil)
	}

	seg, ok, err := r.store.ClaimSegmentRender(ctx, videoID, sequence)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.Wrap(
			services.ErrConflict, "rendering", "claim segment",
			fmt.Sprintf("Segment %d is already rendering", sequence), nil)
	}

	files, err := r.renderSegment(ctx, video, seg, overlayFor(loadCues(video), seg))
	if err != nil {
		seg.Status = queue.SegmentFailed
		seg.ErrorMessage = err.Error()
		_ = r.store.UpdateSegment(ctx, seg)
		return seg, err
	}
	seg.Status = queue.SegmentRendered
	seg.ErrorMessage = ""
	seg.OutputPath = files[0].Path
	if err := r.store.UpdateSegment(ctx, seg); err != nil {
		return seg, fmt.Errorf("update segment %d: %w", sequence, err)
	}
	return seg, nil
}

// renderSegment cuts the source window once, then composites it with the
// narration for each requested format. Composites land in staging and are
// published with a verified copy, so a failure leaves nothing referenced.
func (r *Renderer) renderSegment(ctx context.Context, video *queue.Video, seg *queue.Segment, overlay string) ([]lesson.OutputFile, error) {
	if seg.AudioPath == "" {
		return nil, services.Wrap(
			services.ErrValidation, "rendering", "check narration",
			fmt.Sprintf("Segment %d has no narration audio; rerun synthesis", seg.Sequence), nil)
	}

	outDir := filepath.Join(r.cfg.Paths.OutputDir, outputDirName(video))
	clipDir := filepath.Join(r.cfg.Paths.StagingDir, fmt.Sprintf("video-%d", video.ID), "clips")
	for _, dir := range []string{outDir, clipDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create render dir: %w", err)
		}
	}

	clip := filepath.Join(clipDir, fmt.Sprintf("segment-%02d.mp4", seg.Sequence))
	if err := r.composer.Cut(ctx, video.SourcePath, seg.StartTime, seg.EndTime, clip); err != nil {
		return nil, services.Wrap(
			services.ErrMediaProcessing, "rendering", "cut clip",
			fmt.Sprintf("Cutting segment %d failed", seg.Sequence), err)
	}
	defer os.Remove(clip)

	formats := r.cfg.Rendering.Formats
	if len(formats) == 0 {
		formats = []string{"mp4"}
	}

	files := make([]lesson.OutputFile, 0, len(formats))
	for _, format := range formats {
		staged := filepath.Join(clipDir, fmt.Sprintf("segment-%02d.%s", seg.Sequence, format))
		err := r.composer.Composite(
			ctx, clip, seg.AudioPath,
			seg.Duration(), seg.AudioDuration,
			r.cfg.Rendering.MismatchPolicy, overlay, staged,
		)
		if err != nil {
			return nil, services.Wrap(
				services.ErrMediaProcessing, "rendering", "composite",
				fmt.Sprintf("Compositing segment %d (%s) failed", seg.Sequence, format), err)
		}

		dest := filepath.Join(outDir, fmt.Sprintf("segment-%02d.%s", seg.Sequence, format))
		if err := fileutil.CopyFileVerified(staged, dest); err != nil {
			os.Remove(staged)
			return nil, services.Wrap(
				services.ErrMediaProcessing, "rendering", "publish output",
				fmt.Sprintf("Publishing segment %d (%s) failed", seg.Sequence, format), err)
		}
		os.Remove(staged)

		info, err := os.Stat(dest)
		if err != nil {
			return nil, services.Wrap(
				services.ErrMediaProcessing, "rendering", "verify output",
				fmt.Sprintf("Output for segment %d missing after composite", seg.Sequence), err)
		}
		duration := seg.Duration()
		if seg.AudioDuration > duration && r.cfg.Rendering.MismatchPolicy == config.MismatchHoldFrame {
			duration = seg.AudioDuration
		}
		files = append(files, lesson.OutputFile{
			Path:            dest,
			Format:          format,
			SizeBytes:       info.Size(),
			DurationSeconds: duration,
		})
	}
	return files, nil
}

// outputDirName builds a browsable per-video output directory name from the
// ID and a filesystem-safe slug of the title.
func outputDirName(video *queue.Video) string {
	slug := textutil.SanitizeToken(video.Title)
	if slug == "unknown" {
		return fmt.Sprintf("video-%d", video.ID)
	}
	return fmt.Sprintf("video-%d-%s", video.ID, slug)
}

func loadCues(video *queue.Video) []lesson.VisualCue {
	if video.VisualCuesJSON == "" {
		return nil
	}
	cues, err := lesson.DecodeVisualCues(video.VisualCuesJSON)
	if err != nil {
		return nil
	}
	return cues
}

// overlayFor picks the caption for a segment: the first anchored keypoint cue
// whose anchor starts inside the segment window.
func overlayFor(cues []lesson.VisualCue, seg *queue.Segment) string {
	for _, cue := range cues {
		if cue.Anchor == nil || cue.OverlayText == "" {
			continue
		}
		if cue.Anchor.Start >= seg.StartTime && cue.Anchor.Start < seg.EndTime {
			return cue.OverlayText
		}
	}
	return ""
}
