package visuals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"microlesson/internal/config"
	"microlesson/internal/lesson"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/segmentation"
	"microlesson/internal/services"
	"microlesson/internal/services/textgen"
	"microlesson/internal/stage"
)

// Generator is the subset of the textgen client the enhancer needs.
type Generator interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Enhancer is the stage handler that attaches visual cue metadata to a video.
type Enhancer struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	generator Generator
}

func NewEnhancer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Enhancer {
	client := textgen.NewClient(textgen.Config{
		APIKey:         cfg.TextGen.APIKey,
		BaseURL:        cfg.TextGen.BaseURL,
		Model:          cfg.TextGen.Model,
		TimeoutSeconds: cfg.TextGen.TimeoutSeconds,
	})
	return NewEnhancerWithGenerator(cfg, store, logger, client)
}

func NewEnhancerWithGenerator(cfg *config.Config, store *queue.Store, logger *slog.Logger, generator Generator) *Enhancer {
	return &Enhancer{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "visuals"),
		generator: generator,
	}
}

func (e *Enhancer) Prepare(ctx context.Context, video *queue.Video) error {
	video.ProgressStage = "Enhancing"
	video.ProgressMessage = "Designing visual overlays"
	video.ProgressPercent = 0
	return nil
}

// Execute requests styling for every phase and keypoint, then anchors only
// the keypoints whose alignment clears the trust threshold. Keypoints below
// the threshold keep their cue but carry no timeline anchor.
func (e *Enhancer) Execute(ctx context.Context, video *queue.Video) error {
	logger := logging.WithContext(ctx, e.logger)

	script, err := stage.LoadScript(video.ScriptJSON)
	if err != nil {
		return err
	}
	transcript, err := stage.LoadTranscript(video.TranscriptJSON)
	if err != nil {
		return err
	}
	keypoints, err := stage.LoadKeypoints(video.KeypointsJSON)
	if err != nil {
		return err
	}
	segments, err := e.store.SegmentsForVideo(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("load segments: %w", err)
	}

	payload, err := e.generator.CompleteJSON(ctx, visualSystemPrompt, buildPrompt(script, keypoints))
	if err != nil {
		return services.Wrap(
			services.ErrExternalService, "visuals", "generate cues",
			"Visual cue generation failed", err)
	}

	styling, err := decodeStyling(payload, keypoints)
	if err != nil {
		return services.Wrap(
			services.ErrExternalService, "visuals", "decode cues",
			"Visual cue response failed validation", err)
	}

	cues := assembleCues(styling, keypoints, transcript, segments, e.cfg.Alignment.TrustThreshold)
	encoded, err := lesson.EncodeVisualCues(cues)
	if err != nil {
		return fmt.Errorf("encode visual cues: %w", err)
	}
	video.VisualCuesJSON = encoded
	video.ProgressPercent = 100
	video.ProgressMessage = fmt.Sprintf("Designed %d visual cues", len(cues))

	anchored := 0
	for _, cue := range cues {
		if cue.Anchor != nil {
			anchored++
		}
	}
	logger.Info("visual enhancement completed",
		logging.Int("cues", len(cues)),
		logging.Int("anchored_keypoints", anchored),
	)
	return nil
}

// HealthCheck verifies the textgen backend accepts requests.
func (e *Enhancer) HealthCheck(ctx context.Context) stage.Health {
	const name = "visuals"
	if err := e.generator.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

const visualSystemPrompt = `You are a motion designer for short educational videos. Respond with JSON only, no prose, matching:
{
  "phases": [{"name": "prepare|initiate|deliver|end", "backgroundStyle": "...", "animation": "..."}],
  "keypoints": [{"concept": "...", "overlayText": "...", "animation": "...", "emphasis": "..."}]
}
Provide one entry per requested phase and per requested concept. Overlay text must be at most eight words.`

func buildPrompt(script *lesson.Script, keypoints []lesson.Keypoint) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject area: %s\n\nPhases:\n", script.SubjectArea)
	for _, phase := range script.Phases {
		fmt.Fprintf(&sb, "- %s: %s\n", phase.Name, phase.Content)
	}
	sb.WriteString("\nConcepts needing overlays:\n")
	for _, kp := range keypoints {
		fmt.Fprintf(&sb, "- %s: %s\n", kp.Concept, kp.Description)
	}
	return sb.String()
}

type phaseStyle struct {
	Name            string `json:"name"`
	BackgroundStyle string `json:"backgroundStyle"`
	Animation       string `json:"animation"`
}

type keypointStyle struct {
	Concept     string `json:"concept"`
	OverlayText string `json:"overlayText"`
	Animation   string `json:"animation"`
	Emphasis    string `json:"emphasis"`
}

type styling struct {
	Phases    []phaseStyle    `json:"phases"`
	Keypoints []keypointStyle `json:"keypoints"`
}

func decodeStyling(payload string, keypoints []lesson.Keypoint) (*styling, error) {
	var out styling
	if err := textgen.DecodeLLMJSON(payload, &out); err != nil {
		return nil, err
	}

	order := lesson.PhaseOrder()
	if len(out.Phases) != len(order) {
		return nil, fmt.Errorf("expected %d phase styles, got %d", len(order), len(out.Phases))
	}
	for i, style := range out.Phases {
		if style.Name != string(order[i]) {
			return nil, fmt.Errorf("phase style %d: expected %q, got %q", i, order[i], style.Name)
		}
		if strings.TrimSpace(style.BackgroundStyle) == "" || strings.TrimSpace(style.Animation) == "" {
			return nil, fmt.Errorf("phase style %q incomplete", style.Name)
		}
	}

	byConcept := map[string]keypointStyle{}
	for _, style := range out.Keypoints {
		if strings.TrimSpace(style.OverlayText) == "" {
			return nil, fmt.Errorf("concept %q has empty overlay text", style.Concept)
		}
		byConcept[strings.ToLower(style.Concept)] = style
	}
	for _, kp := range keypoints {
		if _, ok := byConcept[strings.ToLower(kp.Concept)]; !ok {
			return nil, fmt.Errorf("no overlay returned for concept %q", kp.Concept)
		}
	}
	return &out, nil
}

// assembleCues merges model styling with alignment facts. The model never
// decides where a cue lands on the timeline.
func assembleCues(style *styling, keypoints []lesson.Keypoint, transcript *lesson.Transcript, segments []*queue.Segment, trustThreshold float64) []lesson.VisualCue {
	cues := make([]lesson.VisualCue, 0, len(style.Phases)+len(keypoints))
	for _, ps := range style.Phases {
		cues = append(cues, lesson.VisualCue{
			Phase:           lesson.PhaseName(ps.Name),
			BackgroundStyle: ps.BackgroundStyle,
			Animation:       ps.Animation,
		})
	}

	byConcept := map[string]keypointStyle{}
	for _, ks := range style.Keypoints {
		byConcept[strings.ToLower(ks.Concept)] = ks
	}
	for _, kp := range keypoints {
		ks := byConcept[strings.ToLower(kp.Concept)]
		cue := lesson.VisualCue{
			Phase:       lesson.PhaseDeliver,
			Concept:     kp.Concept,
			OverlayText: ks.OverlayText,
			Animation:   ks.Animation,
			Emphasis:    ks.Emphasis,
		}
		anchor, confidence, ok := segmentation.KeypointAnchor(transcript, kp)
		if ok && confidence >= trustThreshold {
			cue.Anchor = &anchor
			cue.Phase = phaseAt(segments, anchor)
		}
		cues = append(cues, cue)
	}
	return cues
}

// phaseAt maps a time range onto the phase of the segment containing its
// start, defaulting to the deliver phase.
func phaseAt(segments []*queue.Segment, anchor lesson.TimeRange) lesson.PhaseName {
	for _, seg := range segments {
		if anchor.Start >= seg.StartTime && anchor.Start < seg.EndTime {
			return lesson.PhaseName(seg.Phase)
		}
	}
	return lesson.PhaseDeliver
}
