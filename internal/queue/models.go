package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a source video.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusAnalyzing    Status = "analyzing"
	StatusAnalyzed     Status = "analyzed"
	StatusScripting    Status = "scripting"
	StatusScripted     Status = "scripted"
	StatusSegmenting   Status = "segmenting"
	StatusSegmented    Status = "segmented"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusRendering    Status = "rendering"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when videos are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusTranscribed,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusScripting,
	StatusScripted,
	StatusSegmenting,
	StatusSegmented,
	StatusSynthesizing,
	StatusSynthesized,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusAnalyzing:    {},
	StatusScripting:    {},
	StatusSegmenting:   {},
	StatusSynthesizing: {},
	StatusRendering:    {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusTranscribing, to: StatusPending},
	{from: StatusAnalyzing, to: StatusTranscribed},
	{from: StatusScripting, to: StatusAnalyzed},
	{from: StatusSegmenting, to: StatusScripted},
	{from: StatusSynthesizing, to: StatusSegmented},
	{from: StatusRendering, to: StatusSynthesized},
}

func processingRollbackTransitions() []statusTransition {
	return stageRollbackTransitions
}

// SegmentStatus represents the per-segment render lifecycle.
type SegmentStatus string

const (
	SegmentPending       SegmentStatus = "pending"
	SegmentSegmented     SegmentStatus = "segmented"
	SegmentScriptUpdated SegmentStatus = "script_updated"
	SegmentRendering     SegmentStatus = "rendering"
	SegmentRendered      SegmentStatus = "rendered"
	SegmentFailed        SegmentStatus = "failed"
)

var segmentStatusSet = map[SegmentStatus]struct{}{
	SegmentPending:       {},
	SegmentSegmented:     {},
	SegmentScriptUpdated: {},
	SegmentRendering:     {},
	SegmentRendered:      {},
	SegmentFailed:        {},
}

// renderClaimableStatuses are the segment states from which a render may be
// claimed. A segment already in rendering cannot be claimed again.
var renderClaimableStatuses = []SegmentStatus{
	SegmentSegmented,
	SegmentScriptUpdated,
	SegmentRendered,
	SegmentFailed,
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalVideos      int
	Error            string
}

// Video represents a source video persisted in SQLite.
type Video struct {
	ID              int64
	Title           string
	SourceType      string
	SourcePath      string
	SourceURL       string
	MimeType        string
	FileSizeBytes   int64
	Width           int
	Height          int
	DurationSeconds float64
	SubjectArea     string
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	AudioPath       string
	TranscriptJSON  string
	KeypointsJSON   string
	ScriptJSON      string
	VisualCuesJSON  string
	OutputsJSON     string
	LastHeartbeat   *time.Time
}

// Segment represents one micro-lesson segment of a source video.
type Segment struct {
	ID            int64
	VideoID       int64
	Sequence      int
	Phase         string
	StartTime     float64
	EndTime       float64
	ScriptText    string
	Anchored      bool
	Confidence    float64
	Status        SegmentStatus
	AudioPath     string
	AudioDuration float64
	OutputPath    string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Duration returns the segment length in seconds.
func (seg Segment) Duration() float64 {
	return seg.EndTime - seg.StartTime
}

// AllStatuses returns the ordered list of known video statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseSegmentStatus converts a string into a known SegmentStatus.
func ParseSegmentStatus(value string) (SegmentStatus, bool) {
	normalized := SegmentStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := segmentStatusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (v Video) IsProcessing() bool {
	_, ok := processingStatuses[v.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the workflow.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
func (v *Video) InitProgress(stage, message string) {
	if v.ProgressStage == "" {
		v.ProgressStage = stage
	}
	v.ProgressMessage = message
	v.ProgressPercent = 0
	v.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (v *Video) SetProgress(stage, message string, percent float64) {
	v.ProgressStage = stage
	v.ProgressMessage = message
	v.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (v *Video) SetProgressComplete(stage, message string) {
	v.SetProgress(stage, message, 100)
}

// SetFailed marks the video as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (v *Video) SetFailed(message string) {
	v.Status = StatusFailed
	v.ErrorMessage = message
	v.ProgressPercent = 0
	v.ProgressMessage = message
	v.LastHeartbeat = nil
	v.ProgressStage = "Failed"
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "queued"
	case StatusCompleted:
		return "final"
	default:
		if _, ok := statusSet[s]; ok {
			return string(s)
		}
		return ""
	}
}
