package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"microlesson/internal/config"
	"microlesson/internal/logging"
	"microlesson/internal/services"
	"microlesson/internal/services/textgen"
)

// Candidate is one ranked search result.
type Candidate struct {
	VideoID         string  `json:"videoId"`
	Title           string  `json:"title"`
	ChannelTitle    string  `json:"channelTitle"`
	Description     string  `json:"description"`
	DurationSeconds int     `json:"durationSeconds"`
	ViewCount       uint64  `json:"viewCount"`
	QualityScore    float64 `json:"qualityScore"`
	EngagementRate  float64 `json:"engagementRate"`
	CompositeScore  float64 `json:"compositeScore"`
}

// QualityScorer rates a candidate's educational quality on a 1-10 scale.
type QualityScorer interface {
	ScoreQuality(ctx context.Context, title, description string) (float64, error)
}

// Discoverer finds and ranks lesson source candidates.
type Discoverer struct {
	cfg     *config.Config
	catalog Catalog
	scorer  QualityScorer
	logger  *slog.Logger
}

// NewDiscoverer creates a discoverer with the default YouTube catalog and
// textgen quality scorer.
func NewDiscoverer(cfg *config.Config, logger *slog.Logger) (*Discoverer, error) {
	catalog, err := NewYouTubeCatalog(cfg.Catalog.APIKey)
	if err != nil {
		return nil, err
	}
	scorer := NewTextGenScorer(textgen.NewClient(textgen.Config{
		APIKey:         cfg.TextGen.APIKey,
		BaseURL:        cfg.TextGen.BaseURL,
		Model:          cfg.TextGen.Model,
		TimeoutSeconds: cfg.TextGen.TimeoutSeconds,
	}))
	return NewDiscovererWithDependencies(cfg, logger, catalog, scorer), nil
}

// NewDiscovererWithDependencies allows injecting the catalog and scorer (used in tests).
func NewDiscovererWithDependencies(cfg *config.Config, logger *slog.Logger, catalog Catalog, scorer QualityScorer) *Discoverer {
	return &Discoverer{
		cfg:     cfg,
		catalog: catalog,
		scorer:  scorer,
		logger:  logging.NewComponentLogger(logger, "discovery"),
	}
}

// Search queries the catalog for topic+level, filters non-educational
// results, collapses duplicate uploads, and returns the top candidates by
// composite score.
func (d *Discoverer) Search(ctx context.Context, topic, level string) ([]Candidate, error) {
	logger := logging.WithContext(ctx, d.logger)

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(
			services.ErrValidation, "discovery", "search",
			"Search topic is required", nil)
	}

	query := buildQuery(topic, level)
	items, err := d.catalog.Search(ctx, query, d.cfg.Catalog.MaxResults)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog search finished",
		logging.String("query", query),
		logging.Int("raw_results", len(items)),
	)

	filtered := d.filter(items)
	candidates := make([]Candidate, 0, len(filtered))
	for _, item := range filtered {
		quality := d.scoreQuality(ctx, logger, item)
		engagement := EngagementRate(item.LikeCount, item.ViewCount)
		candidates = append(candidates, Candidate{
			VideoID:         item.ID,
			Title:           DisplayTitle(item.Title),
			ChannelTitle:    item.ChannelTitle,
			Description:     item.Description,
			DurationSeconds: item.DurationSeconds,
			ViewCount:       item.ViewCount,
			QualityScore:    quality,
			EngagementRate:  engagement,
			CompositeScore:  CompositeScore(quality, item.ViewCount, engagement),
		})
	}

	SortCandidates(candidates)
	candidates = DedupeCandidates(candidates)
	if topN := d.cfg.Catalog.TopN; topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

func buildQuery(topic, level string) string {
	parts := []string{topic}
	if level = strings.TrimSpace(level); level != "" {
		parts = append(parts, level)
	}
	parts = append(parts, "tutorial")
	return strings.Join(parts, " ")
}

func (d *Discoverer) filter(items []CatalogItem) []CatalogItem {
	kept := items[:0:0]
	for _, item := range items {
		if min := d.cfg.Catalog.MinDurationSec; min > 0 && item.DurationSeconds < min {
			continue
		}
		if max := d.cfg.Catalog.MaxDurationSec; max > 0 && item.DurationSeconds > max {
			continue
		}
		if item.ViewCount < d.cfg.Catalog.MinViewCount {
			continue
		}
		if !IsEducationalTitle(item.Title) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// scoreQuality asks the quality scorer; a failed call falls back to the
// neutral score instead of dropping the candidate.
func (d *Discoverer) scoreQuality(ctx context.Context, logger *slog.Logger, item CatalogItem) float64 {
	if d.scorer == nil {
		return neutralQualityScore
	}
	score, err := d.scorer.ScoreQuality(ctx, item.Title, item.Description)
	if err != nil {
		logger.Warn("quality scoring failed, using neutral score",
			logging.String("candidate", item.ID),
			logging.Error(err),
		)
		return neutralQualityScore
	}
	if score < 1 || score > 10 {
		logger.Warn("quality score out of range, using neutral score",
			logging.String("candidate", item.ID),
			logging.Float64("score", score),
		)
		return neutralQualityScore
	}
	return score
}

// TextGenScorer rates candidates with a structured text-generation call.
type TextGenScorer struct {
	client *textgen.Client
}

// NewTextGenScorer wraps a textgen client as a QualityScorer.
func NewTextGenScorer(client *textgen.Client) *TextGenScorer {
	return &TextGenScorer{client: client}
}

const qualitySystemPrompt = `You rate how well a video serves as source material for an educational micro-lesson.
Respond with JSON only: {"score": <number from 1 to 10>}.
Consider clarity of topic, instructional framing, and depth suggested by the description.`

// ScoreQuality returns the 1-10 educational quality rating for a candidate.
func (s *TextGenScorer) ScoreQuality(ctx context.Context, title, description string) (float64, error) {
	userPrompt := fmt.Sprintf("Title: %s\nDescription: %s", strings.TrimSpace(title), strings.TrimSpace(description))
	payload, err := s.client.CompleteJSON(ctx, qualitySystemPrompt, userPrompt)
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Score float64 `json:"score"`
	}
	if err := textgen.DecodeLLMJSON(payload, &parsed); err != nil {
		return 0, fmt.Errorf("quality score payload: %w", err)
	}
	return parsed.Score, nil
}
