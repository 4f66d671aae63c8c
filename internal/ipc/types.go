package ipc

import "microlesson/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Video mirrors the HTTP API video DTO for internal IPC callers.
type Video = api.Video

// Segment mirrors the HTTP API segment DTO for internal IPC callers.
type Segment = api.Segment

// StageHealth describes readiness of a workflow stage.
type StageHealth = api.StageHealth

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	QueueStats   map[string]int     `json:"queue_stats"`
	LastError    string             `json:"last_error"`
	LastVideo    *Video             `json:"last_video"`
	LockPath     string             `json:"lock_path"`
	QueueDBPath  string             `json:"queue_db_path"`
	StageHealth  []StageHealth      `json:"stage_health"`
	Dependencies []DependencyStatus `json:"dependencies"`
	PID          int                `json:"pid"`
}

// VideoListRequest filters video listing by status.
type VideoListRequest struct {
	Statuses []string `json:"statuses"`
}

// VideoListResponse contains queued videos.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}

// VideoStatusRequest fetches one video with its segments.
type VideoStatusRequest struct {
	ID int64 `json:"id"`
}

// VideoStatusResponse contains a single video and its segments.
type VideoStatusResponse struct {
	Status api.VideoStatus `json:"status"`
}

// IngestRequest admits a new source video.
type IngestRequest struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	SubjectArea string `json:"subject_area"`
}

// IngestResponse acknowledges an admitted video.
type IngestResponse struct {
	Receipt api.IngestResponse `json:"receipt"`
}

// RenderSegmentRequest triggers a re-render of one segment.
type RenderSegmentRequest struct {
	VideoID  int64 `json:"video_id"`
	Sequence int   `json:"sequence"`
}

// RenderSegmentResponse reports the claimed segment.
type RenderSegmentResponse struct {
	Segment Segment `json:"segment"`
}

// SearchRequest queries the video catalog for lesson-source candidates.
type SearchRequest struct {
	Topic string `json:"topic"`
	Level string `json:"level"`
}

// SearchResponse contains ranked candidates.
type SearchResponse struct {
	Result api.SearchResponse `json:"result"`
}

// QueueClearRequest removes all videos.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed videos.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed videos.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight videos.
type QueueResetRequest struct{}

// QueueResetResponse reports number of videos reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed videos. Empty list means all failed videos.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried videos.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    string `json:"schema_version"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalVideos      int    `json:"total_videos"`
	Error            string `json:"error"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}
