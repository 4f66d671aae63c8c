package preflight

import (
	"context"

	"microlesson/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckTextGen(ctx, cfg))

	// The speech backend only matters once synthesis is configured.
	if cfg.TTS.BaseURL != "" {
		results = append(results, CheckTTS(ctx, cfg))
	}

	return results
}
