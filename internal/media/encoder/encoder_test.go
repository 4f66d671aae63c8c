package encoder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"microlesson/internal/config"
)

func newStubEncoder(t *testing.T) (*Encoder, *[][]string) {
	t.Helper()
	enc := NewEncoder("ffmpeg")
	var calls [][]string
	enc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, args)
		// The runner writes the temp output the way ffmpeg would.
		out := args[len(args)-1]
		return os.WriteFile(out, []byte("video"), 0o644)
	})
	return enc, &calls
}

func TestCutWritesFinalOutput(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "segment-1.mp4")
	enc, calls := newStubEncoder(t)

	if err := enc.Cut(context.Background(), "/src/video.mp4", 10.5, 42, dest); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected final output at %s: %v", dest, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "segment-1.tmp.mp4")); !os.IsNotExist(err) {
		t.Fatal("temp file should be renamed away")
	}

	joined := strings.Join((*calls)[0], " ")
	for _, want := range []string{"-ss 10.5", "-to 42", "-i /src/video.mp4", "-c:v libx264"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q in %q", want, joined)
		}
	}
}

func TestCutRejectsInvalidWindow(t *testing.T) {
	enc, _ := newStubEncoder(t)
	if err := enc.Cut(context.Background(), "/src.mp4", 30, 10, "/out.mp4"); err == nil {
		t.Fatal("expected error for inverted window")
	}
	if err := enc.Cut(context.Background(), "/src.mp4", -1, 10, "/out.mp4"); err == nil {
		t.Fatal("expected error for negative start")
	}
}

func TestCompositeHoldFrameExtendsVideo(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.mp4")
	enc, calls := newStubEncoder(t)

	err := enc.Composite(context.Background(), "/clip.mp4", "/audio.wav", 30, 33.5, config.MismatchHoldFrame, "", dest)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	joined := strings.Join((*calls)[0], " ")
	if !strings.Contains(joined, "tpad=stop_mode=clone:stop_duration=3.5") {
		t.Errorf("expected hold frame filter in %q", joined)
	}
	if !strings.Contains(joined, "-shortest") {
		t.Errorf("expected -shortest in %q", joined)
	}
}

func TestCompositeTimeCompressSpeedsAudio(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.mp4")
	enc, calls := newStubEncoder(t)

	err := enc.Composite(context.Background(), "/clip.mp4", "/audio.wav", 30, 36, config.MismatchTimeCompress, "", dest)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	joined := strings.Join((*calls)[0], " ")
	if !strings.Contains(joined, "atempo=1.2") {
		t.Errorf("expected atempo filter in %q", joined)
	}
	if !strings.Contains(joined, "-c:v copy") {
		t.Errorf("expected video copy in %q", joined)
	}
}

func TestCompositeShortAudioPadsSilence(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.mp4")
	enc, calls := newStubEncoder(t)

	err := enc.Composite(context.Background(), "/clip.mp4", "/audio.wav", 30, 25, config.MismatchTimeCompress, "", dest)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	joined := strings.Join((*calls)[0], " ")
	if !strings.Contains(joined, "-af apad") {
		t.Errorf("expected apad filter in %q", joined)
	}
}

func TestCompositeOverlayBurnsCaption(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.mp4")
	enc, calls := newStubEncoder(t)

	err := enc.Composite(context.Background(), "/clip.mp4", "/audio.wav", 30, 25, config.MismatchHoldFrame, "Bayes' rule: 50%", dest)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	joined := strings.Join((*calls)[0], " ")
	if !strings.Contains(joined, `drawtext=text='Bayes\' rule\: 50\%'`) {
		t.Errorf("expected escaped drawtext filter in %q", joined)
	}
	if strings.Contains(joined, "-c:v copy") {
		t.Errorf("overlay requires a re-encode, got %q", joined)
	}
}

func TestCompositeFailureLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.mp4")
	enc := NewEncoder("ffmpeg")
	enc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		out := args[len(args)-1]
		if err := os.WriteFile(out, []byte("partial"), 0o644); err != nil {
			return err
		}
		return context.DeadlineExceeded
	})

	err := enc.Composite(context.Background(), "/clip.mp4", "/audio.wav", 30, 30, config.MismatchHoldFrame, "", dest)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("dest should not exist after failure")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.tmp.mp4")); !os.IsNotExist(statErr) {
		t.Fatal("temp file should be cleaned up after failure")
	}
}

func TestAtempoChain(t *testing.T) {
	if got := atempoChain(1.2); got != "atempo=1.2" {
		t.Errorf("unexpected chain: %s", got)
	}
	if got := atempoChain(5); got != "atempo=2.0,atempo=2.0,atempo=1.25" {
		t.Errorf("unexpected chain for 5x: %s", got)
	}
}
