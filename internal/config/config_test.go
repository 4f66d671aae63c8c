package config

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	base := t.TempDir()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return cfg
}

func TestDefaultValidates(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alignment.TrustThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for trust threshold above 1")
	}

	cfg = testConfig(t)
	cfg.Script.DurationTolerance = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero duration tolerance")
	}

	cfg = testConfig(t)
	cfg.Rendering.MismatchPolicy = "loop_forever"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown mismatch policy")
	}
}

func TestValidateRejectsInvertedDurations(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ingestion.MinDurationSec = 100
	cfg.Ingestion.MaxDurationSec = 50
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max duration below min")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("file should not exist")
	}
	if resolved == "" {
		t.Fatal("resolved path empty")
	}
	if cfg.Script.TargetDurationSec != defaultTargetDurationSec {
		t.Fatalf("expected default target duration, got %d", cfg.Script.TargetDurationSec)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
staging_dir = "` + filepath.Join(dir, "stage") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[script]
target_duration_sec = 300

[rendering]
mismatch_policy = "time_compress"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected existing file")
	}
	if cfg.Script.TargetDurationSec != 300 {
		t.Fatalf("target duration = %d, want 300", cfg.Script.TargetDurationSec)
	}
	if cfg.Rendering.MismatchPolicy != MismatchTimeCompress {
		t.Fatalf("mismatch policy = %q", cfg.Rendering.MismatchPolicy)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	expanded, err := expandPath("~/x")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if expanded != filepath.Join(home, "x") {
		t.Fatalf("expanded = %q", expanded)
	}
}
