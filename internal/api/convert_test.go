package api

import (
	"testing"
	"time"

	"microlesson/internal/queue"
	"microlesson/internal/stage"
	"microlesson/internal/workflow"
)

func TestFromVideoFormatsTimestamps(t *testing.T) {
	created := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	video := &queue.Video{
		ID:              4,
		Title:           "Linear Algebra Basics",
		SourceType:      "upload",
		SourcePath:      "/media/linalg.mp4",
		Status:          queue.StatusCompleted,
		ProgressStage:   "Rendering",
		ProgressPercent: 100,
		DurationSeconds: 540,
		SubjectArea:     "mathematics",
		CreatedAt:       created,
		UpdatedAt:       created.Add(10 * time.Minute),
	}

	out := FromVideo(video)
	if out.CreatedAt != "2026-01-05T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt: %q", out.CreatedAt)
	}
	if out.UpdatedAt != "2026-01-05T12:10:00.000Z" {
		t.Fatalf("unexpected updatedAt: %q", out.UpdatedAt)
	}
	if out.Progress.Stage != "Rendering" || out.Progress.Percent != 100 {
		t.Fatalf("unexpected progress: %+v", out.Progress)
	}
	if out.SubjectArea != "mathematics" {
		t.Fatalf("subject area not converted: %q", out.SubjectArea)
	}
}

func TestFromVideoZeroTimesOmitted(t *testing.T) {
	out := FromVideo(&queue.Video{ID: 1, Status: queue.StatusPending})
	if out.CreatedAt != "" || out.UpdatedAt != "" {
		t.Fatalf("zero times should map to empty strings: %+v", out)
	}
}

func TestFromVideoNil(t *testing.T) {
	out := FromVideo(nil)
	if out.ID != 0 || out.Status != "" {
		t.Fatalf("nil video should convert to zero value: %+v", out)
	}
}

func TestFromStatusSummarySortsStageHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running: true,
		QueueStats: map[queue.Status]int{
			queue.StatusPending:   2,
			queue.StatusCompleted: 1,
		},
		StageHealth: map[string]stage.Health{
			"transcription": stage.Healthy("transcription"),
			"analysis":      stage.Unhealthy("analysis", "api key missing"),
			"rendering":     stage.Healthy("rendering"),
		},
	}

	out := FromStatusSummary(summary)
	if !out.Running {
		t.Fatal("expected running workflow")
	}
	if out.QueueStats["pending"] != 2 || out.QueueStats["completed"] != 1 {
		t.Fatalf("unexpected queue stats: %+v", out.QueueStats)
	}
	names := make([]string, 0, len(out.StageHealth))
	for _, health := range out.StageHealth {
		names = append(names, health.Name)
	}
	want := []string{"analysis", "rendering", "transcription"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected sorted health names %v, got %v", want, names)
		}
	}
	if out.StageHealth[0].Ready || out.StageHealth[0].Detail != "api key missing" {
		t.Fatalf("unexpected unhealthy entry: %+v", out.StageHealth[0])
	}
}

func TestFromStatusSummaryLastVideo(t *testing.T) {
	summary := workflow.StatusSummary{
		LastVideo: &queue.Video{ID: 9, Title: "Thermodynamics", Status: queue.StatusScripting},
	}
	out := FromStatusSummary(summary)
	if out.LastVideo == nil || out.LastVideo.ID != 9 {
		t.Fatalf("last video not converted: %+v", out.LastVideo)
	}
	if out.LastVideo.Status != string(queue.StatusScripting) {
		t.Fatalf("unexpected status: %q", out.LastVideo.Status)
	}
}
