package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Ingestion contains limits applied when a source video is admitted.
type Ingestion struct {
	MaxFileSizeMB   int64 `toml:"max_file_size_mb"`
	MinDurationSec  int   `toml:"min_duration_sec"`
	MaxDurationSec  int   `toml:"max_duration_sec"`
	MinWidth        int   `toml:"min_width"`
	MinHeight       int   `toml:"min_height"`
	FetchTimeoutSec int   `toml:"fetch_timeout_sec"`
}

// Catalog contains configuration for the external video catalog used by
// candidate discovery.
type Catalog struct {
	APIKey         string `toml:"api_key"`
	MaxResults     int64  `toml:"max_results"`
	MinViewCount   uint64 `toml:"min_view_count"`
	MinDurationSec int    `toml:"min_duration_sec"`
	MaxDurationSec int    `toml:"max_duration_sec"`
	TopN           int    `toml:"top_n"`
}

// TextGen contains shared text-generation connection settings used by
// analysis, script generation, visual cues, and candidate quality scoring.
type TextGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains configuration for the text-to-speech collaborator.
type TTS struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Voice          string  `toml:"voice"`
	Speed          float64 `toml:"speed"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Whisper contains configuration for the transcription runner.
type Whisper struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	Language    string `toml:"language"`
}

// Alignment contains the script-to-transcript alignment thresholds. These are
// heuristics, kept configurable rather than baked into the algorithm.
type Alignment struct {
	TrustThreshold     float64 `toml:"trust_threshold"`
	MinPhaseConfidence float64 `toml:"min_phase_confidence"`
}

// Script contains script generation tuning.
type Script struct {
	TargetDurationSec  int     `toml:"target_duration_sec"`
	DurationTolerance  float64 `toml:"duration_tolerance"`
	MaxOptimizeRetries int     `toml:"max_optimize_retries"`
}

// MismatchPolicy selects how rendering reconciles narration audio that runs
// longer than the visual clip.
type MismatchPolicy string

const (
	// MismatchHoldFrame freezes the final video frame until narration ends.
	MismatchHoldFrame MismatchPolicy = "hold_frame"
	// MismatchTimeCompress speeds narration up to fit the clip duration.
	MismatchTimeCompress MismatchPolicy = "time_compress"
)

// Rendering contains output composition settings.
type Rendering struct {
	MismatchPolicy MismatchPolicy `toml:"mismatch_policy"`
	Formats        []string       `toml:"formats"`
}

// Workflow contains daemon timing, heartbeat, and concurrency settings.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	Workers            int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains push notification settings. Notifications are
// disabled when no ntfy topic is configured.
type Notifications struct {
	NtfyTopic         string `toml:"ntfy_topic"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
}

// Config encapsulates all configuration values for the micro-lesson daemon.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Ingestion Ingestion `toml:"ingestion"`
	Catalog   Catalog   `toml:"catalog"`
	TextGen   TextGen   `toml:"textgen"`
	TTS       TTS       `toml:"tts"`
	Whisper   Whisper   `toml:"whisper"`
	Alignment Alignment `toml:"alignment"`
	Script    Script    `toml:"script"`
	Rendering Rendering `toml:"rendering"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/microlesson/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file in the
// working directory supplies API key fallbacks before the environment is
// consulted.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	_ = godotenv.Load()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("microlesson.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for media composition.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
