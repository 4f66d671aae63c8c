package api

import "microlesson/internal/discovery"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Video describes a source video in a transport-friendly format.
type Video struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	SourceType      string   `json:"sourceType"`
	SourcePath      string   `json:"sourcePath,omitempty"`
	SourceURL       string   `json:"sourceUrl,omitempty"`
	Status          string   `json:"status"`
	Progress        Progress `json:"progress"`
	ErrorMessage    string   `json:"errorMessage,omitempty"`
	DurationSeconds float64  `json:"durationSeconds,omitempty"`
	SubjectArea     string   `json:"subjectArea,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

// Progress captures stage progress information for a video.
type Progress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Segment describes one micro segment of a video.
type Segment struct {
	Sequence     int     `json:"sequence"`
	Phase        string  `json:"phase"`
	StartTime    float64 `json:"startTime"`
	EndTime      float64 `json:"endTime"`
	Status       string  `json:"status"`
	Anchored     bool    `json:"anchored"`
	Confidence   float64 `json:"confidence"`
	OutputPath   string  `json:"outputPath,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// VideoStatus is the polling payload for one video's pipeline run.
type VideoStatus struct {
	Video           Video     `json:"video"`
	Status          string    `json:"status"`
	ProgressPercent float64   `json:"progressPercent"`
	Error           string    `json:"error,omitempty"`
	Segments        []Segment `json:"segments"`
}

// IngestRequest admits a new source video, either a local upload or a remote
// URL.
type IngestRequest struct {
	Path        string `json:"path,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	SubjectArea string `json:"subjectArea,omitempty"`
}

// IngestResponse acknowledges an admitted video before the pipeline runs.
type IngestResponse struct {
	VideoID             int64   `json:"videoId"`
	Title               string  `json:"title"`
	DurationSeconds     float64 `json:"durationSeconds"`
	EstimatedCompletion string  `json:"estimatedCompletion,omitempty"`
}

// SearchResponse wraps ranked lesson-source candidates.
type SearchResponse struct {
	Candidates []discovery.Candidate `json:"candidates"`
}

// VideoListResponse wraps a collection of videos.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}

// StatsResponse provides queue counts keyed by status.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastVideo   *Video         `json:"lastVideo,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}
