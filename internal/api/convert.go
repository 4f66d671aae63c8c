package api

import (
	"sort"

	"microlesson/internal/queue"
	"microlesson/internal/workflow"
)

// FromVideo converts a queue row into its API representation.
func FromVideo(video *queue.Video) Video {
	if video == nil {
		return Video{}
	}
	out := Video{
		ID:              video.ID,
		Title:           video.Title,
		SourceType:      video.SourceType,
		SourcePath:      video.SourcePath,
		SourceURL:       video.SourceURL,
		Status:          string(video.Status),
		ErrorMessage:    video.ErrorMessage,
		DurationSeconds: video.DurationSeconds,
		SubjectArea:     video.SubjectArea,
		Progress: Progress{
			Stage:   video.ProgressStage,
			Percent: video.ProgressPercent,
			Message: video.ProgressMessage,
		},
	}
	if !video.CreatedAt.IsZero() {
		out.CreatedAt = video.CreatedAt.Format(dateTimeFormat)
	}
	if !video.UpdatedAt.IsZero() {
		out.UpdatedAt = video.UpdatedAt.Format(dateTimeFormat)
	}
	return out
}

// FromVideos converts a slice of queue rows.
func FromVideos(videos []*queue.Video) []Video {
	out := make([]Video, 0, len(videos))
	for _, video := range videos {
		out = append(out, FromVideo(video))
	}
	return out
}

// FromSegment converts a segment row into its API representation.
func FromSegment(seg *queue.Segment) Segment {
	if seg == nil {
		return Segment{}
	}
	return Segment{
		Sequence:     seg.Sequence,
		Phase:        seg.Phase,
		StartTime:    seg.StartTime,
		EndTime:      seg.EndTime,
		Status:       string(seg.Status),
		Anchored:     seg.Anchored,
		Confidence:   seg.Confidence,
		OutputPath:   seg.OutputPath,
		ErrorMessage: seg.ErrorMessage,
	}
}

// FromSegments converts a slice of segment rows.
func FromSegments(segments []*queue.Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, FromSegment(seg))
	}
	return out
}

// MergeStats normalizes queue stats into string keys for transport.
func MergeStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromStatusSummary converts workflow diagnostics into the API shape. Stage
// health is sorted by name so responses are stable.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	out := WorkflowStatus{
		Running:    summary.Running,
		QueueStats: MergeStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	if summary.LastVideo != nil {
		video := FromVideo(summary.LastVideo)
		out.LastVideo = &video
	}
	names := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		health := summary.StageHealth[name]
		out.StageHealth = append(out.StageHealth, StageHealth{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return out
}
