package config

const (
	defaultStagingDir         = "~/.local/share/microlesson/staging"
	defaultOutputDir          = "~/.local/share/microlesson/output"
	defaultLogDir             = "~/.local/share/microlesson/logs"
	defaultAPIBind            = "127.0.0.1:7512"
	defaultMaxFileSizeMB      = 2048
	defaultMinDurationSec     = 10
	defaultMaxDurationSec     = 4 * 3600
	defaultMinWidth           = 640
	defaultMinHeight          = 360
	defaultFetchTimeoutSec    = 30
	defaultCatalogMaxResults  = 25
	defaultCatalogMinViews    = 1000
	defaultCatalogMinDuration = 120
	defaultCatalogMaxDuration = 3600
	defaultCatalogTopN        = 5
	defaultTextGenBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultTextGenModel       = "google/gemini-3-flash-preview"
	defaultTextGenTimeout     = 60
	defaultTTSVoice           = "en-US-standard"
	defaultTTSSpeed           = 1.0
	defaultTTSTimeout         = 60
	defaultWhisperModel       = "large-v3-turbo"
	defaultTrustThreshold     = 0.6
	defaultMinPhaseConfidence = 0.3
	defaultTargetDurationSec  = 240
	defaultDurationTolerance  = 0.1
	defaultOptimizeRetries    = 3
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultWorkers            = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNtfyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Ingestion: Ingestion{
			MaxFileSizeMB:   defaultMaxFileSizeMB,
			MinDurationSec:  defaultMinDurationSec,
			MaxDurationSec:  defaultMaxDurationSec,
			MinWidth:        defaultMinWidth,
			MinHeight:       defaultMinHeight,
			FetchTimeoutSec: defaultFetchTimeoutSec,
		},
		Catalog: Catalog{
			MaxResults:     defaultCatalogMaxResults,
			MinViewCount:   defaultCatalogMinViews,
			MinDurationSec: defaultCatalogMinDuration,
			MaxDurationSec: defaultCatalogMaxDuration,
			TopN:           defaultCatalogTopN,
		},
		TextGen: TextGen{
			BaseURL:        defaultTextGenBaseURL,
			Model:          defaultTextGenModel,
			TimeoutSeconds: defaultTextGenTimeout,
		},
		TTS: TTS{
			Voice:          defaultTTSVoice,
			Speed:          defaultTTSSpeed,
			TimeoutSeconds: defaultTTSTimeout,
		},
		Whisper: Whisper{
			Model: defaultWhisperModel,
		},
		Alignment: Alignment{
			TrustThreshold:     defaultTrustThreshold,
			MinPhaseConfidence: defaultMinPhaseConfidence,
		},
		Script: Script{
			TargetDurationSec:  defaultTargetDurationSec,
			DurationTolerance:  defaultDurationTolerance,
			MaxOptimizeRetries: defaultOptimizeRetries,
		},
		Rendering: Rendering{
			MismatchPolicy: MismatchHoldFrame,
			Formats:        []string{"mp4"},
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			Workers:            defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSec: defaultNtfyTimeout,
		},
	}
}
