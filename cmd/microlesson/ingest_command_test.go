package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIngestRequiresSource(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"ingest"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "provide a local file path or --url") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestIngestRejectsPathAndURL(t *testing.T) {
	env := setupCLITestEnv(t)

	video := filepath.Join(t.TempDir(), "sample.mp4")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	_, _, err := runCLI(t, []string{"ingest", video, "--url", "https://example.com/v.mp4"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("expected exclusive source error, got %v", err)
	}
}

func TestIngestRejectsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"ingest", filepath.Join(t.TempDir(), "absent.mp4")}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(target, []byte("text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := runCLI(t, []string{"ingest", target}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unsupported file extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestIngestWithoutIngestorErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	video := filepath.Join(t.TempDir(), "sample.mp4")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	// The test daemon runs without an ingestor wired in, so the request
	// must surface a configuration error instead of queuing silently.
	_, _, err := runCLI(t, []string{"ingest", video}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatalf("expected error from daemon without ingestor")
	}
}
