package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"microlesson/internal/queue"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewUpload(ctx, "Photosynthesis Basics", "/videos/photosynthesis.mp4"); err != nil {
		t.Fatalf("upload photosynthesis: %v", err)
	}

	chainRule, err := env.store.NewUpload(ctx, "Chain Rule", "/videos/chain-rule.mp4")
	if err != nil {
		t.Fatalf("upload chain rule: %v", err)
	}
	chainRule.Status = queue.StatusFailed
	if err := env.store.Update(ctx, chainRule); err != nil {
		t.Fatalf("mark chain rule failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Photosynthesis Basics")
	requireContains(t, out, "Chain Rule")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status failed: %v", err)
	}
	requireContains(t, out, "Chain Rule")
	if strings.Contains(out, "Photosynthesis Basics") {
		t.Fatalf("unexpected pending video in failed listing: %s", out)
	}
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	video, err := env.store.NewUpload(ctx, "Ohm's Law", "/videos/ohms-law.mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	video.Status = queue.StatusFailed
	if err := env.store.Update(ctx, video); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed videos")

	updated, err := env.store.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("lookup video: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	updated.Status = queue.StatusFailed
	if err := env.store.Update(ctx, updated); err != nil {
		t.Fatalf("reset to failed: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --failed: %v", err)
	}
	requireContains(t, out, "Cleared 1 failed videos")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared")
}

func TestQueueRetrySpecificID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	video, err := env.store.NewUpload(ctx, "Mitosis Walkthrough", "/videos/mitosis.mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	video.Status = queue.StatusFailed
	if err := env.store.Update(ctx, video); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", fmt.Sprintf("%d", video.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry specific: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Video %d reset for retry", video.ID))

	out, _, err = runCLI(t, []string{"queue", "retry", "9999"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry missing: %v", err)
	}
	requireContains(t, out, "Video 9999 not found")
}

func TestQueueRetryInvalidID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "retry", "abc"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid video id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestQueueResetStuck(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	video, err := env.store.NewUpload(ctx, "Stuck Video", "/videos/stuck.mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	video.Status = queue.StatusAnalyzing
	if err := env.store.Update(ctx, video); err != nil {
		t.Fatalf("mark analyzing: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "reset-stuck"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue reset-stuck: %v", err)
	}
	requireContains(t, out, "Reset 1 videos")

	updated, err := env.store.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("lookup video: %v", err)
	}
	if updated.Status != queue.StatusTranscribed {
		t.Fatalf("expected transcribed after reset, got %s", updated.Status)
	}
}

func TestQueueHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewUpload(ctx, "Health Check", "/videos/health.mp4"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Total: 1")
	requireContains(t, out, "Pending: 1")
	requireContains(t, out, "Completed: 0")
}

func TestQueueListUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "list", "--status", "bogus"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}
