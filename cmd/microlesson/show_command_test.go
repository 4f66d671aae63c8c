package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"microlesson/internal/queue"
)

func TestShowCommandWithSegments(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	video, err := env.store.NewUpload(ctx, "Photosynthesis Basics", "/videos/photosynthesis.mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	video.Status = queue.StatusSegmented
	video.ProgressStage = "Segmenting"
	video.ProgressPercent = 60
	if err := env.store.Update(ctx, video); err != nil {
		t.Fatalf("update: %v", err)
	}

	segments := []*queue.Segment{
		{Sequence: 1, Phase: "hook", StartTime: 0, EndTime: 12.5, ScriptText: "Why do leaves look green?", Anchored: true, Confidence: 0.9, Status: queue.SegmentSegmented},
		{Sequence: 2, Phase: "core", StartTime: 12.5, EndTime: 48, ScriptText: "Chlorophyll absorbs red and blue light.", Status: queue.SegmentPending},
	}
	if err := env.store.ReplaceSegments(ctx, video.ID, segments); err != nil {
		t.Fatalf("replace segments: %v", err)
	}

	out, _, err := runCLI(t, []string{"show", fmt.Sprintf("%d", video.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Video #%d", video.ID))
	requireContains(t, out, "Photosynthesis Basics")
	requireContains(t, out, "hook")
	requireContains(t, out, "0.0s - 12.5s")
	requireContains(t, out, "core")
}

func TestShowCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	video, err := env.store.NewUpload(ctx, "Chain Rule", "/videos/chain-rule.mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	out, _, err := runCLI(t, []string{"show", fmt.Sprintf("%d", video.ID), "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}

	var detail map[string]any
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if detail["status"] != string(queue.StatusPending) {
		t.Fatalf("expected pending status, got %v", detail["status"])
	}
}

func TestShowCommandNotFound(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"show", "9999"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatalf("expected error for missing video")
	}
}

func TestShowCommandInvalidID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"show", "abc"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid video id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}
