package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"microlesson/internal/config"
	"microlesson/internal/logging"
	"microlesson/internal/media/ffprobe"
	"microlesson/internal/queue"
	"microlesson/internal/services"
)

// Prober inspects a media file and returns container metadata.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Receipt is returned to the caller after a successful ingest. The pipeline
// runs asynchronously; the caller polls status using VideoID.
type Receipt struct {
	VideoID             int64
	Title               string
	DurationSeconds     float64
	EstimatedCompletion time.Time
}

// Ingestor validates and admits source videos.
type Ingestor struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	probe  Prober
	fetch  Fetcher
	now    func() time.Time
}

// NewIngestor creates an ingestor using the configured ffprobe binary.
func NewIngestor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Ingestor {
	ing := &Ingestor{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "ingestion"),
		now:    time.Now,
	}
	ing.probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, cfg.FFprobeBinary(), path)
	}
	ing.fetch = newHTTPFetcher(cfg)
	return ing
}

// WithProber overrides media inspection (used in tests).
func (i *Ingestor) WithProber(probe Prober) {
	i.probe = probe
}

// WithFetcher overrides remote download (used in tests).
func (i *Ingestor) WithFetcher(fetch Fetcher) {
	i.fetch = fetch
}

// WithClock overrides the time source (used in tests).
func (i *Ingestor) WithClock(now func() time.Time) {
	i.now = now
}

// IngestUpload validates a local file and creates its queue record.
func (i *Ingestor) IngestUpload(ctx context.Context, path, title string, subjectArea string) (*Receipt, error) {
	logger := logging.WithContext(ctx, i.logger)

	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(
			services.ErrValidation, "ingestion", "validate upload",
			"Source path is required", nil)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "ingestion", "validate upload",
			"Source path could not be resolved", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "ingestion", "validate upload",
			"Source file does not exist or is unreadable", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(
			services.ErrValidation, "ingestion", "validate upload",
			"Source path is a directory, not a video file", nil)
	}

	if existing, err := i.store.FindBySourcePath(ctx, absPath); err == nil && existing != nil {
		return nil, services.Wrap(
			services.ErrConflict, "ingestion", "validate upload",
			fmt.Sprintf("Source already ingested as video %d", existing.ID), nil)
	}

	meta, err := i.validateMedia(ctx, absPath, info.Size())
	if err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title == "" {
		title = deriveTitle(absPath)
	}

	video, err := i.store.NewUpload(ctx, title, absPath)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "ingestion", "create record",
			"Failed to persist source video", err)
	}

	video.FileSizeBytes = info.Size()
	video.MimeType = mimeTypeForPath(absPath)
	video.Width = meta.width
	video.Height = meta.height
	video.DurationSeconds = meta.duration
	video.SubjectArea = strings.TrimSpace(subjectArea)
	video.InitProgress("", "")
	if err := i.store.Update(ctx, video); err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "ingestion", "create record",
			"Failed to persist source metadata", err)
	}

	logger.Info("source video admitted",
		logging.Int64(logging.FieldVideoID, video.ID),
		logging.String("title", title),
		logging.Float64("duration_seconds", meta.duration),
		logging.Int("width", meta.width),
		logging.Int("height", meta.height),
	)

	return &Receipt{
		VideoID:             video.ID,
		Title:               title,
		DurationSeconds:     meta.duration,
		EstimatedCompletion: i.estimateCompletion(meta.duration),
	}, nil
}

// IngestRemote validates a remote URL, downloads it into the staging
// directory, and admits the downloaded file.
func (i *Ingestor) IngestRemote(ctx context.Context, rawURL, title string, subjectArea string) (*Receipt, error) {
	logger := logging.WithContext(ctx, i.logger)

	rawURL = strings.TrimSpace(rawURL)
	if err := validateRemoteURL(rawURL); err != nil {
		return nil, err
	}

	localPath, err := i.fetch(ctx, rawURL, i.cfg.Paths.StagingDir, i.maxFileSizeBytes())
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "ingestion", "fetch remote",
			"Downloaded file went missing", err)
	}

	meta, err := i.validateMedia(ctx, localPath, info.Size())
	if err != nil {
		removeQuietly(localPath)
		return nil, err
	}

	if title = strings.TrimSpace(title); title == "" {
		title = deriveTitle(localPath)
	}

	video, err := i.store.NewRemote(ctx, title, rawURL)
	if err != nil {
		removeQuietly(localPath)
		return nil, services.Wrap(
			services.ErrTransient, "ingestion", "create record",
			"Failed to persist source video", err)
	}

	video.SourcePath = localPath
	video.FileSizeBytes = info.Size()
	video.MimeType = mimeTypeForPath(localPath)
	video.Width = meta.width
	video.Height = meta.height
	video.DurationSeconds = meta.duration
	video.SubjectArea = strings.TrimSpace(subjectArea)
	video.InitProgress("", "")
	if err := i.store.Update(ctx, video); err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "ingestion", "create record",
			"Failed to persist source metadata", err)
	}

	logger.Info("remote source admitted",
		logging.Int64(logging.FieldVideoID, video.ID),
		logging.String("source_url", rawURL),
		logging.Float64("duration_seconds", meta.duration),
	)

	return &Receipt{
		VideoID:             video.ID,
		Title:               title,
		DurationSeconds:     meta.duration,
		EstimatedCompletion: i.estimateCompletion(meta.duration),
	}, nil
}

type mediaMetadata struct {
	duration float64
	width    int
	height   int
}

func (i *Ingestor) validateMedia(ctx context.Context, path string, sizeBytes int64) (mediaMetadata, error) {
	var meta mediaMetadata

	if maxBytes := i.maxFileSizeBytes(); maxBytes > 0 && sizeBytes > maxBytes {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			fmt.Sprintf("File size %d bytes exceeds the %d MB limit", sizeBytes, i.cfg.Ingestion.MaxFileSizeMB), nil)
	}

	result, err := i.probe(ctx, path)
	if err != nil {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			"File is not a readable video container", err)
	}

	video := result.PrimaryVideoStream()
	if video == nil {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			"No video stream found in the container", nil)
	}
	if result.AudioStreamCount() == 0 {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			"No audio stream found; transcription requires an audio track", nil)
	}

	meta.duration = result.DurationSeconds()
	meta.width = video.Width
	meta.height = video.Height

	if min := i.cfg.Ingestion.MinDurationSec; min > 0 && meta.duration < float64(min) {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			fmt.Sprintf("Duration %.1fs is below the %ds minimum", meta.duration, min), nil)
	}
	if max := i.cfg.Ingestion.MaxDurationSec; max > 0 && meta.duration > float64(max) {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			fmt.Sprintf("Duration %.1fs exceeds the %ds maximum", meta.duration, max), nil)
	}
	if minW, minH := i.cfg.Ingestion.MinWidth, i.cfg.Ingestion.MinHeight; (minW > 0 && meta.width < minW) || (minH > 0 && meta.height < minH) {
		return meta, services.Wrap(
			services.ErrValidation, "ingestion", "validate media",
			fmt.Sprintf("Resolution %dx%d is below the %dx%d minimum", meta.width, meta.height, minW, minH), nil)
	}

	return meta, nil
}

func (i *Ingestor) maxFileSizeBytes() int64 {
	if i.cfg.Ingestion.MaxFileSizeMB <= 0 {
		return 0
	}
	return i.cfg.Ingestion.MaxFileSizeMB << 20
}

// estimateCompletion applies a duration-proportional heuristic: transcription
// and rendering dominate and scale with source length.
func (i *Ingestor) estimateCompletion(durationSeconds float64) time.Time {
	estimate := time.Duration(durationSeconds*1.5)*time.Second + 2*time.Minute
	return i.now().Add(estimate)
}

func deriveTitle(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return "Untitled Video"
	}
	return stem
}

func mimeTypeForPath(path string) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}
