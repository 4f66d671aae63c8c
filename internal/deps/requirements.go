package deps

import (
	"microlesson/internal/config"
	"microlesson/internal/services/whisper"
)

// DefaultRequirements lists the external binaries the pipeline shells out to.
func DefaultRequirements(cfg *config.Config) []Requirement {
	ffmpeg := "ffmpeg"
	ffprobe := "ffprobe"
	if cfg != nil {
		ffmpeg = cfg.FFmpegBinary()
		ffprobe = cfg.FFprobeBinary()
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Clip extraction and segment composition"},
		{Name: "FFprobe", Command: ffprobe, Description: "Source video validation"},
		{Name: "uvx", Command: whisper.UVXCommand, Description: "Runs the Whisper transcription tool"},
	}
}
