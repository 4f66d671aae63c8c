package encoder

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"microlesson/internal/config"
)

// Encoder runs ffmpeg to produce segment clips and rendered outputs.
type Encoder struct {
	binary string
	runner func(ctx context.Context, name string, args ...string) error
}

// NewEncoder creates an encoder using the supplied ffmpeg binary.
func NewEncoder(binary string) *Encoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Encoder) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.runner = runner
}

func (e *Encoder) run(ctx context.Context, args ...string) error {
	if e.runner != nil {
		return e.runner(ctx, e.binary, args...)
	}
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", e.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Cut extracts the [startSec, endSec) window of the source into dest.
// The output is written to a temp path first so dest never holds a partial file.
func (e *Encoder) Cut(ctx context.Context, source string, startSec, endSec float64, dest string) error {
	if source == "" || dest == "" {
		return fmt.Errorf("cut: source and dest required")
	}
	if startSec < 0 || endSec <= startSec {
		return fmt.Errorf("cut: invalid window [%.3f, %.3f)", startSec, endSec)
	}
	tempPath := tempOutputPath(dest)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-to", formatSeconds(endSec),
		"-i", source,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-c:a", "aac",
		"-movflags", "+faststart",
		tempPath,
	}
	if err := e.run(ctx, args...); err != nil {
		removeIfExists(tempPath)
		return fmt.Errorf("cut: %w", err)
	}
	return finalizeOutput(tempPath, dest)
}

// Composite replaces the clip's audio track with narration audio, reconciling
// duration mismatches per the configured policy, and writes the result to dest.
// A non-empty overlayText is burned in as a caption, which forces a video
// re-encode.
func (e *Encoder) Composite(ctx context.Context, clipPath, audioPath string, clipDuration, audioDuration float64, policy config.MismatchPolicy, overlayText, dest string) error {
	if clipPath == "" || audioPath == "" || dest == "" {
		return fmt.Errorf("composite: clip, audio, and dest required")
	}
	if clipDuration <= 0 {
		return fmt.Errorf("composite: invalid clip duration %.3f", clipDuration)
	}

	tempPath := tempOutputPath(dest)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", clipPath,
		"-i", audioPath,
	}
	args = append(args, mismatchArgs(clipDuration, audioDuration, policy, overlayText)...)
	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-shortest",
		tempPath,
	)
	if err := e.run(ctx, args...); err != nil {
		removeIfExists(tempPath)
		return fmt.Errorf("composite: %w", err)
	}
	return finalizeOutput(tempPath, dest)
}

// mismatchArgs builds the filter and codec arguments that reconcile narration
// audio whose duration differs from the clip.
func mismatchArgs(clipDuration, audioDuration float64, policy config.MismatchPolicy, overlayText string) []string {
	overrun := audioDuration - clipDuration

	var videoFilters []string
	var args []string

	switch {
	case policy == config.MismatchTimeCompress && overrun > 0:
		// Speed narration up so it fits the clip exactly. atempo only accepts
		// factors in [0.5, 2.0] per filter instance, so chain when needed.
		args = append(args, "-af", atempoChain(audioDuration/clipDuration))
	case overrun > 0:
		// hold_frame: clone the last video frame until narration finishes.
		videoFilters = append(videoFilters,
			fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(overrun)))
	default:
		// Narration is shorter than the clip; pad it with silence.
		args = append(args, "-af", "apad")
	}

	if overlayText != "" {
		videoFilters = append(videoFilters, drawtextFilter(overlayText))
	}

	if len(videoFilters) == 0 {
		return append(args, "-c:v", "copy")
	}
	return append(args,
		"-vf", strings.Join(videoFilters, ","),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
	)
}

// drawtextFilter renders a bottom-centered caption. Characters meaningful to
// the ffmpeg filter grammar are escaped.
func drawtextFilter(text string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return fmt.Sprintf(
		"drawtext=text='%s':x=(w-text_w)/2:y=h-th-40:fontsize=36:fontcolor=white:box=1:boxcolor=black@0.4:boxborderw=8",
		escaper.Replace(text))
}

// atempoChain decomposes a tempo factor into a chain of atempo filters each
// within the supported [0.5, 2.0] range.
func atempoChain(factor float64) string {
	if factor <= 0 {
		factor = 1
	}
	var parts []string
	for factor > 2.0 {
		parts = append(parts, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		parts = append(parts, "atempo=0.5")
		factor /= 0.5
	}
	parts = append(parts, fmt.Sprintf("atempo=%s", formatSeconds(factor)))
	return strings.Join(parts, ",")
}

func formatSeconds(value float64) string {
	rounded := math.Round(value*1000) / 1000
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", rounded), "0"), ".")
}

// tempOutputPath keeps the destination extension so ffmpeg can infer the
// container format.
func tempOutputPath(dest string) string {
	ext := filepath.Ext(dest)
	return strings.TrimSuffix(dest, ext) + ".tmp" + ext
}

func finalizeOutput(tempPath, dest string) error {
	if err := os.Rename(tempPath, dest); err != nil {
		removeIfExists(tempPath)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

func removeIfExists(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
}
