package scriptgen

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

// Generator is the subset of the textgen client the writer needs.
type Generator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Writer is the stage handler for the scripting status.
type Writer struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	generator Generator
}

// NewWriter creates a script writer backed by the configured textgen backend.
func NewWriter(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Writer {
	client := textgen.NewClient(textgen.Config{
		APIKey:         cfg.TextGen.APIKey,
		BaseURL:        cfg.TextGen.BaseURL,
		Model:          cfg.TextGen.Model,
		TimeoutSeconds: cfg.TextGen.TimeoutSeconds,
	})
	return NewWriterWithGenerator(cfg, store, logger, client)
}

// NewWriterWithGenerator allows injecting the generator (used in tests).
func NewWriterWithGenerator(cfg *config.Config, store *queue.Store, logger *slog.Logger, generator Generator) *Writer {
	return &Writer{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "scriptgen"),
		generator: generator,
	}
}

// Prepare initializes progress messaging.
func (w *Writer) Prepare(ctx context.Context, video *queue.Video) error {
	video.ProgressStage = "Scripting"
	video.ProgressMessage = "Generating lesson script"
	video.ProgressPercent = 0
	return nil
}

// Execute generates, optimizes, and persists the lesson script.
func (w *Writer) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, w.logger)

	keypoints, err := stage.LoadKeypoints(video.KeypointsJSON)
	if err != nil {
		return err
	}

	script, err := w.buildScript(ctx, video, keypoints)
	if err != nil {
		return err
	}

	encoded, err := lesson.EncodeScript(script)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "scriptgen", "persist script",
			"Failed to serialize script", err)
	}
	video.ScriptJSON = encoded
	video.ProgressPercent = 100
	video.ProgressMessage = fmt.Sprintf("Script ready (%.0fs total)", script.TotalDuration())

	logger.Info("script generation finished",
		logging.Float64("total_duration", script.TotalDuration()),
		logging.Float64("target_duration", script.TargetDuration),
		logging.Int("optimize_passes", script.OptimizePasses),
		logging.String("target_bloom", string(script.TargetBloom)),
		logging.Bool("quality_warning", script.QualityWarning != ""),
	)
	return nil
}

// HealthCheck verifies the textgen backend accepts requests.
func (w *Writer) HealthCheck(ctx context.Context) stage.Health {
	const name = "scriptgen"
	if err := w.generator.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// buildScript runs the generate-then-optimize loop. The returned script's
// total duration is always within tolerance of the target; a forced rescale
// past the comfortable range is flagged with a quality warning instead of
// failing the run.
func (w *Writer) buildScript(ctx context.Context, video *queue.Video, keypoints []lesson.Keypoint) (*lesson.Script, error) {
	target := float64(w.cfg.Script.TargetDurationSec)
	tolerance := w.cfg.Script.DurationTolerance
	bloom := targetBloomLevel(keypoints)
	top := topKeypoints(keypoints, 8)

	script, err := w.generate(ctx, video, top, bloom, target, "")
	if err != nil {
		return nil, err
	}

	passes := 0
	for passes < w.cfg.Script.MaxOptimizeRetries {
		total := script.TotalDuration()
		if withinTolerance(total, target, tolerance) {
			break
		}
		passes++

		factor := target / total
		if factor >= minScaleFactor && factor <= maxScaleFactor {
			scalePhases(script, factor)
			continue
		}

		regenerated, err := w.generate(ctx, video, top, bloom, target, rebalanceGuidance(total, target))
		if err != nil {
			break
		}
		script = regenerated
	}

	if total := script.TotalDuration(); !withinTolerance(total, target, tolerance) {
		// Retry budget exhausted: force the durations to fit and flag the
		// content mismatch instead of failing the run.
		scalePhases(script, target/total)
		script.QualityWarning = fmt.Sprintf(
			"duration optimization exhausted after %d passes; phase durations were rescaled from a %.0fs draft to fit the %.0fs target",
			passes, total, target)
	}
	script.OptimizePasses = passes

	enrichScript(script, keypoints)
	if err := script.Validate(tolerance); err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "scriptgen", "validate script",
			"Generated script failed validation", err)
	}
	return script, nil
}

func topKeypoints(keypoints []lesson.Keypoint, n int) []lesson.Keypoint {
	sorted := make([]lesson.Keypoint, len(keypoints))
	copy(sorted, keypoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

const scriptSystemPrompt = `You write four-phase micro-lesson scripts grounded in Cognitive Load Theory.
The phases are, in order: prepare (activate prior knowledge), initiate (motivate the concept), deliver (core explanation), end (consolidate and reflect).
Respond with JSON only:
{"subjectArea":"...","phases":[{"name":"prepare","content":"...","duration":30,"purpose":"...","cognitiveStrategy":"..."},{"name":"initiate",...},{"name":"deliver",...},{"name":"end",...}]}
duration is in seconds. The four durations must sum close to the requested target. Every field is required.`

func (w *Writer) generate(ctx context.Context, video *queue.Video, keypoints []lesson.Keypoint, bloom lesson.BloomLevel, target float64, guidance string) (*lesson.Script, error) {
	var sb strings.Builder
	if subject := strings.TrimSpace(video.SubjectArea); subject != "" {
		fmt.Fprintf(&sb, "Subject area: %s\n", subject)
	}
	fmt.Fprintf(&sb, "Title: %s\n", video.Title)
	fmt.Fprintf(&sb, "Target Bloom level: %s\n", bloom)
	fmt.Fprintf(&sb, "Target total duration: %.0f seconds\n\nKeypoints:\n", target)
	for _, kp := range keypoints {
		fmt.Fprintf(&sb, "- %s (%s, %s): %s\n", kp.Concept, kp.Difficulty, kp.BloomLevel, kp.Description)
	}
	if guidance != "" {
		fmt.Fprintf(&sb, "\n%s\n", guidance)
	}

	payload, err := w.generator.CompleteJSON(ctx, scriptSystemPrompt, sb.String())
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "scriptgen", "generate script",
			"Script generation request failed", err)
	}
	return decodeScript(payload, bloom, target, keypoints)
}

type scriptPayload struct {
	SubjectArea string `json:"subjectArea"`
	Phases      []struct {
		Name              string  `json:"name"`
		Content           string  `json:"content"`
		Duration          float64 `json:"duration"`
		Purpose           string  `json:"purpose"`
		CognitiveStrategy string  `json:"cognitiveStrategy"`
	} `json:"phases"`
}

// decodeScript parses and schema-checks a generation payload.
func decodeScript(payload string, bloom lesson.BloomLevel, target float64, keypoints []lesson.Keypoint) (*lesson.Script, error) {
	var parsed scriptPayload
	if err := textgen.DecodeLLMJSON(payload, &parsed); err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "scriptgen", "generate script",
			"Script payload is not valid JSON", err)
	}

	order := lesson.PhaseOrder()
	if len(parsed.Phases) != len(order) {
		return nil, services.Wrap(
			services.ErrExternalService, "scriptgen", "generate script",
			fmt.Sprintf("Expected %d phases, got %d", len(order), len(parsed.Phases)), nil)
	}

	script := &lesson.Script{
		Version:        1,
		SubjectArea:    strings.TrimSpace(parsed.SubjectArea),
		TargetBloom:    bloom,
		TargetDuration: target,
		Keypoints:      keypoints,
	}
	for i, raw := range parsed.Phases {
		name := lesson.PhaseName(strings.ToLower(strings.TrimSpace(raw.Name)))
		if name != order[i] {
			return nil, services.Wrap(
				services.ErrExternalService, "scriptgen", "generate script",
				fmt.Sprintf("Phase %d: expected %q, got %q", i+1, order[i], raw.Name), nil)
		}
		content := strings.TrimSpace(raw.Content)
		if content == "" {
			return nil, services.Wrap(
				services.ErrExternalService, "scriptgen", "generate script",
				fmt.Sprintf("Phase %q has empty content", name), nil)
		}
		if raw.Duration <= 0 {
			return nil, services.Wrap(
				services.ErrExternalService, "scriptgen", "generate script",
				fmt.Sprintf("Phase %q has non-positive duration", name), nil)
		}
		script.Phases = append(script.Phases, lesson.ScriptPhase{
			Name:              name,
			Content:           content,
			Duration:          raw.Duration,
			Purpose:           strings.TrimSpace(raw.Purpose),
			CognitiveStrategy: strings.TrimSpace(raw.CognitiveStrategy),
		})
	}
	return script, nil
}
