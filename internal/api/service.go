package api

import (
	"context"
	"fmt"
	"strings"

	"microlesson/internal/discovery"
	"microlesson/internal/ingestion"
	"microlesson/internal/notifications"
	"microlesson/internal/queue"
	"microlesson/internal/services"
)

// Ingestor admits source videos. Satisfied by *ingestion.Ingestor.
type Ingestor interface {
	IngestUpload(ctx context.Context, path, title, subjectArea string) (*ingestion.Receipt, error)
	IngestRemote(ctx context.Context, rawURL, title, subjectArea string) (*ingestion.Receipt, error)
}

// SegmentRerenderer re-renders a single segment. Satisfied by
// *rendering.Renderer.
type SegmentRerenderer interface {
	RenderSegment(ctx context.Context, videoID int64, sequence int) (*queue.Segment, error)
}

// Searcher finds ranked lesson-source candidates. Satisfied by
// *discovery.Discoverer.
type Searcher interface {
	Search(ctx context.Context, topic, level string) ([]discovery.Candidate, error)
}

// VideoService exposes the operations shared by the HTTP API and the CLI.
// Optional collaborators may be nil; the corresponding operations then report
// a configuration error instead of panicking.
type VideoService struct {
	store    *queue.Store
	ingestor Ingestor
	renderer SegmentRerenderer
	searcher Searcher
	notifier notifications.Service
}

func NewVideoService(store *queue.Store, ingestor Ingestor, renderer SegmentRerenderer, searcher Searcher) *VideoService {
	return &VideoService{store: store, ingestor: ingestor, renderer: renderer, searcher: searcher}
}

// SetNotifier enables push notifications for successful ingests.
func (s *VideoService) SetNotifier(svc notifications.Service) {
	s.notifier = svc
}

// List returns videos filtered by status.
func (s *VideoService) List(ctx context.Context, statuses ...queue.Status) ([]Video, error) {
	videos, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromVideos(videos), nil
}

// Stats returns queue counts keyed by status string.
func (s *VideoService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeStats(stats), nil
}

// Status returns the polling payload for one video, including its segments.
func (s *VideoService) Status(ctx context.Context, id int64) (*VideoStatus, error) {
	video, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(
			services.ErrNotFound, "api", "video status",
			fmt.Sprintf("Video %d not found", id), nil)
	}
	segments, err := s.store.SegmentsForVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VideoStatus{
		Video:           FromVideo(video),
		Status:          string(video.Status),
		ProgressPercent: video.ProgressPercent,
		Error:           video.ErrorMessage,
		Segments:        FromSegments(segments),
	}, nil
}

// Ingest admits a local upload or a remote URL. Exactly one of Path and URL
// must be set.
func (s *VideoService) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	if s.ingestor == nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "api", "ingest",
			"Ingestion is not configured", nil)
	}
	path := strings.TrimSpace(req.Path)
	url := strings.TrimSpace(req.URL)
	if (path == "") == (url == "") {
		return nil, services.Wrap(
			services.ErrValidation, "api", "ingest",
			"Exactly one of path and url is required", nil)
	}

	var (
		receipt *ingestion.Receipt
		err     error
	)
	if path != "" {
		receipt, err = s.ingestor.IngestUpload(ctx, path, req.Title, req.SubjectArea)
	} else {
		receipt, err = s.ingestor.IngestRemote(ctx, url, req.Title, req.SubjectArea)
	}
	if err != nil {
		return nil, err
	}

	out := &IngestResponse{
		VideoID:         receipt.VideoID,
		Title:           receipt.Title,
		DurationSeconds: receipt.DurationSeconds,
	}
	if !receipt.EstimatedCompletion.IsZero() {
		out.EstimatedCompletion = receipt.EstimatedCompletion.Format(dateTimeFormat)
	}
	if s.notifier != nil {
		// Best effort; a notification failure never fails the ingest.
		_ = s.notifier.NotifyIngestCompleted(ctx, receipt.Title)
	}
	return out, nil
}

// RenderSegment triggers a re-render of one segment. A segment currently
// rendering yields services.ErrConflict.
func (s *VideoService) RenderSegment(ctx context.Context, videoID int64, sequence int) (*Segment, error) {
	if s.renderer == nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "api", "render segment",
			"Rendering is not configured", nil)
	}
	seg, err := s.renderer.RenderSegment(ctx, videoID, sequence)
	if err != nil {
		return nil, err
	}
	out := FromSegment(seg)
	return &out, nil
}

// Search returns ranked lesson-source candidates for a topic.
func (s *VideoService) Search(ctx context.Context, topic, level string) (*SearchResponse, error) {
	if s.searcher == nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "api", "search",
			"Catalog search is not configured", nil)
	}
	candidates, err := s.searcher.Search(ctx, topic, level)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Candidates: candidates}, nil
}
