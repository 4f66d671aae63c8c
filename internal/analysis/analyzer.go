package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"microlesson/internal/config"
	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/services/textgen"
	"microlesson/internal/stage"
)

const (
	importanceThreshold = 0.6
	maxPromptSegments   = 20
	minKeypoints        = 8
	maxKeypoints        = 12
)

// Generator is the subset of the textgen client the analyzer needs.
type Generator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Analyzer is the stage handler for the analyzing status.
type Analyzer struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	generator Generator
}

// NewAnalyzer creates an analyzer backed by the configured textgen backend.
func NewAnalyzer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Analyzer {
	client := textgen.NewClient(textgen.Config{
		APIKey:         cfg.TextGen.APIKey,
		BaseURL:        cfg.TextGen.BaseURL,
		Model:          cfg.TextGen.Model,
		TimeoutSeconds: cfg.TextGen.TimeoutSeconds,
	})
	return NewAnalyzerWithGenerator(cfg, store, logger, client)
}

// NewAnalyzerWithGenerator allows injecting the generator (used in tests).
func NewAnalyzerWithGenerator(cfg *config.Config, store *queue.Store, logger *slog.Logger, generator Generator) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "analysis"),
		generator: generator,
	}
}

// Prepare initializes progress messaging.
func (a *Analyzer) Prepare(ctx context.Context, video *queue.Video) error {
	video.ProgressStage = "Analyzing"
	video.ProgressMessage = "Extracting keypoints"
	video.ProgressPercent = 0
	return nil
}

// Execute derives keypoints from the stored transcript.
func (a *Analyzer) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, a.logger)

	transcript, err := stage.LoadTranscript(video.TranscriptJSON)
	if err != nil {
		return err
	}

	selected := selectSegments(transcript.Segments)
	payload, err := a.generator.CompleteJSON(ctx, keypointSystemPrompt, keypointUserPrompt(video, selected))
	if err != nil {
		return services.Wrap(
			services.ErrExternalService, "analysis", "extract keypoints",
			"Keypoint extraction request failed", err)
	}

	keypoints, err := decodeKeypoints(payload)
	if err != nil {
		return err
	}

	for i := range keypoints {
		enhanceKeypoint(&keypoints[i], transcript.Segments)
	}

	encoded, err := lesson.EncodeKeypoints(keypoints)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "analysis", "persist keypoints",
			"Failed to serialize keypoints", err)
	}
	video.KeypointsJSON = encoded
	video.ProgressPercent = 100
	video.ProgressMessage = fmt.Sprintf("Extracted %d keypoints", len(keypoints))

	logger.Info("content analysis finished",
		logging.Int("prompt_segments", len(selected)),
		logging.Int("keypoints", len(keypoints)),
	)
	return nil
}

// HealthCheck verifies the textgen backend accepts requests.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	const name = "analysis"
	if err := a.generator.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// selectSegments keeps segments above the importance threshold, capped to the
// top entries by importance. When nothing clears the threshold the most
// important segments are used anyway so analysis can still proceed.
func selectSegments(segments []lesson.TranscriptSegment) []lesson.TranscriptSegment {
	eligible := make([]lesson.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.Importance > importanceThreshold {
			eligible = append(eligible, seg)
		}
	}
	if len(eligible) == 0 {
		eligible = append(eligible, segments...)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Importance > eligible[j].Importance
	})
	if len(eligible) > maxPromptSegments {
		eligible = eligible[:maxPromptSegments]
	}
	// Restore timeline order for the prompt.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].StartTime < eligible[j].StartTime
	})
	return eligible
}

const keypointSystemPrompt = `You extract educational keypoints from lecture transcripts.
Respond with JSON only:
{"keypoints":[{"concept":"...","description":"...","importance":0.0,"bloomLevel":"remember|understand|apply|analyze|evaluate|create","difficulty":"beginner|intermediate|advanced","examples":["..."]}]}
Return between 8 and 12 keypoints. importance is in [0,1]. Every field is required.`

func keypointUserPrompt(video *queue.Video, segments []lesson.TranscriptSegment) string {
	var sb strings.Builder
	if subject := strings.TrimSpace(video.SubjectArea); subject != "" {
		fmt.Fprintf(&sb, "Subject area: %s\n", subject)
	}
	fmt.Fprintf(&sb, "Title: %s\n\nTranscript excerpts:\n", video.Title)
	for _, seg := range segments {
		fmt.Fprintf(&sb, "[%.1fs-%.1fs] %s\n", seg.StartTime, seg.EndTime, strings.TrimSpace(seg.Text))
	}
	return sb.String()
}

type keypointPayload struct {
	Keypoints []struct {
		Concept     string   `json:"concept"`
		Description string   `json:"description"`
		Importance  float64  `json:"importance"`
		BloomLevel  string   `json:"bloomLevel"`
		Difficulty  string   `json:"difficulty"`
		Examples    []string `json:"examples"`
	} `json:"keypoints"`
}

// decodeKeypoints parses and schema-checks the generation payload.
func decodeKeypoints(payload string) ([]lesson.Keypoint, error) {
	var parsed keypointPayload
	if err := textgen.DecodeLLMJSON(payload, &parsed); err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "analysis", "extract keypoints",
			"Keypoint payload is not valid JSON", err)
	}
	if n := len(parsed.Keypoints); n < minKeypoints || n > maxKeypoints {
		return nil, services.Wrap(
			services.ErrExternalService, "analysis", "extract keypoints",
			fmt.Sprintf("Expected %d-%d keypoints, got %d", minKeypoints, maxKeypoints, n), nil)
	}

	keypoints := make([]lesson.Keypoint, 0, len(parsed.Keypoints))
	for i, raw := range parsed.Keypoints {
		concept := strings.TrimSpace(raw.Concept)
		description := strings.TrimSpace(raw.Description)
		if concept == "" || description == "" {
			return nil, services.Wrap(
				services.ErrExternalService, "analysis", "extract keypoints",
				fmt.Sprintf("Keypoint %d is missing concept or description", i+1), nil)
		}
		if raw.Importance < 0 || raw.Importance > 1 {
			return nil, services.Wrap(
				services.ErrExternalService, "analysis", "extract keypoints",
				fmt.Sprintf("Keypoint %q importance %.2f outside [0,1]", concept, raw.Importance), nil)
		}
		bloom, ok := lesson.ParseBloomLevel(raw.BloomLevel)
		if !ok {
			return nil, services.Wrap(
				services.ErrExternalService, "analysis", "extract keypoints",
				fmt.Sprintf("Keypoint %q has unknown bloom level %q", concept, raw.BloomLevel), nil)
		}
		difficulty, ok := lesson.ParseDifficulty(raw.Difficulty)
		if !ok {
			return nil, services.Wrap(
				services.ErrExternalService, "analysis", "extract keypoints",
				fmt.Sprintf("Keypoint %q has unknown difficulty %q", concept, raw.Difficulty), nil)
		}
		keypoints = append(keypoints, lesson.Keypoint{
			Concept:     concept,
			Description: description,
			Importance:  raw.Importance,
			BloomLevel:  bloom,
			Difficulty:  difficulty,
			Examples:    raw.Examples,
		})
	}
	return keypoints, nil
}
