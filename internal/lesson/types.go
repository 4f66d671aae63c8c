package lesson

import (
	"fmt"
	"sort"
	"strings"
)

// SourceType distinguishes how a source video entered the system.
type SourceType string

const (
	SourceUpload SourceType = "upload"
	SourceRemote SourceType = "remote-url"
)

// TimeRange is a half-open span on the original video timeline, in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the span length in seconds.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// Valid reports whether the range is non-empty and ordered.
func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.Start < r.End
}

// TranscriptSegment is one time-stamped span of recognized speech.
type TranscriptSegment struct {
	ID         int      `json:"id"`
	StartTime  float64  `json:"startTime"`
	EndTime    float64  `json:"endTime"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Importance float64  `json:"importance"`
	KeyTopics  []string `json:"keyTopics,omitempty"`
}

// TranscriptQuality summarizes recognition quality across a transcript.
type TranscriptQuality struct {
	OverallConfidence float64 `json:"overallConfidence"`
	WordCount         int     `json:"wordCount"`
	SegmentCount      int     `json:"segmentCount"`
}

// Transcript is the ordered, non-overlapping transcription of one source video.
type Transcript struct {
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
	FullText string              `json:"fullText"`
	Quality  TranscriptQuality   `json:"quality"`
}

// Normalize sorts segments by start time, drops empty ones, clamps overlaps so
// that segment[i].endTime <= segment[i+1].startTime, and recomputes the full
// text and quality summary.
func (t *Transcript) Normalize() {
	segments := t.Segments[:0]
	for _, seg := range t.Segments {
		if strings.TrimSpace(seg.Text) == "" || seg.EndTime <= seg.StartTime {
			continue
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})
	for i := 1; i < len(segments); i++ {
		if segments[i].StartTime < segments[i-1].EndTime {
			segments[i-1].EndTime = segments[i].StartTime
		}
	}
	kept := segments[:0]
	for _, seg := range segments {
		if seg.EndTime > seg.StartTime {
			kept = append(kept, seg)
		}
	}
	for i := range kept {
		kept[i].ID = i + 1
	}
	t.Segments = kept

	parts := make([]string, 0, len(t.Segments))
	words := 0
	confidence := 0.0
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		parts = append(parts, text)
		words += len(strings.Fields(text))
		confidence += seg.Confidence
	}
	t.FullText = strings.Join(parts, " ")
	t.Quality = TranscriptQuality{WordCount: words, SegmentCount: len(t.Segments)}
	if len(t.Segments) > 0 {
		t.Quality.OverallConfidence = confidence / float64(len(t.Segments))
	}
}

// Validate checks the transcript ordering invariant.
func (t *Transcript) Validate() error {
	for i, seg := range t.Segments {
		if seg.StartTime >= seg.EndTime {
			return fmt.Errorf("segment %d: start %.2f not before end %.2f", i+1, seg.StartTime, seg.EndTime)
		}
		if i > 0 && t.Segments[i-1].EndTime > seg.StartTime {
			return fmt.Errorf("segment %d overlaps previous (prev end %.2f > start %.2f)", i+1, t.Segments[i-1].EndTime, seg.StartTime)
		}
	}
	return nil
}

// BloomLevel classifies the cognitive demand of a keypoint or script.
type BloomLevel string

const (
	BloomRemember   BloomLevel = "remember"
	BloomUnderstand BloomLevel = "understand"
	BloomApply      BloomLevel = "apply"
	BloomAnalyze    BloomLevel = "analyze"
	BloomEvaluate   BloomLevel = "evaluate"
	BloomCreate     BloomLevel = "create"
)

var bloomOrder = []BloomLevel{BloomRemember, BloomUnderstand, BloomApply, BloomAnalyze, BloomEvaluate, BloomCreate}

// BloomLevels returns the ordered Bloom taxonomy.
func BloomLevels() []BloomLevel {
	cp := make([]BloomLevel, len(bloomOrder))
	copy(cp, bloomOrder)
	return cp
}

// ParseBloomLevel converts a string into a known Bloom level.
func ParseBloomLevel(value string) (BloomLevel, bool) {
	normalized := BloomLevel(strings.ToLower(strings.TrimSpace(value)))
	for _, level := range bloomOrder {
		if level == normalized {
			return level, true
		}
	}
	return "", false
}

// BloomRank returns the 0-based position of a level in the taxonomy, or -1.
func BloomRank(level BloomLevel) int {
	for i, candidate := range bloomOrder {
		if candidate == level {
			return i
		}
	}
	return -1
}

// Difficulty tiers a keypoint by audience readiness.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty converts a string into a known difficulty tier.
func ParseDifficulty(value string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(value))) {
	case DifficultyBeginner:
		return DifficultyBeginner, true
	case DifficultyIntermediate:
		return DifficultyIntermediate, true
	case DifficultyAdvanced:
		return DifficultyAdvanced, true
	default:
		return "", false
	}
}

// Keypoint is an extracted educational concept with pedagogy metadata.
// Immutable once generated for a given script version.
type Keypoint struct {
	Concept               string     `json:"concept"`
	Description           string     `json:"description"`
	Importance            float64    `json:"importance"`
	BloomLevel            BloomLevel `json:"bloomLevel"`
	Difficulty            Difficulty `json:"difficulty"`
	Examples              []string   `json:"examples,omitempty"`
	RelatedSegmentIDs     []int      `json:"relatedSegmentIds,omitempty"`
	AverageConfidence     float64    `json:"averageConfidence"`
	TotalDuration         float64    `json:"totalDuration"`
	ConceptualDensity     float64    `json:"conceptualDensity"`
	CognitiveLoadEstimate float64    `json:"cognitiveLoadEstimate"`
	LearningTimeEstimate  float64    `json:"learningTimeEstimate"`
}

// CognitiveLoad models the three load components, each in [0,1].
type CognitiveLoad struct {
	Intrinsic  float64 `json:"intrinsic"`
	Extraneous float64 `json:"extraneous"`
	Germane    float64 `json:"germane"`
}

// InRange reports whether every component lies in [0,1].
func (l CognitiveLoad) InRange() bool {
	for _, v := range []float64{l.Intrinsic, l.Extraneous, l.Germane} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// PhaseName identifies one of the four CLT script phases.
type PhaseName string

const (
	PhasePrepare  PhaseName = "prepare"
	PhaseInitiate PhaseName = "initiate"
	PhaseDeliver  PhaseName = "deliver"
	PhaseEnd      PhaseName = "end"
)

var phaseOrder = []PhaseName{PhasePrepare, PhaseInitiate, PhaseDeliver, PhaseEnd}

// PhaseOrder returns the canonical phase sequence.
func PhaseOrder() []PhaseName {
	cp := make([]PhaseName, len(phaseOrder))
	copy(cp, phaseOrder)
	return cp
}

// ScriptPhase is one phase of a CLT script.
type ScriptPhase struct {
	Name              PhaseName     `json:"name"`
	Content           string        `json:"content"`
	Duration          float64       `json:"duration"`
	Purpose           string        `json:"purpose"`
	CognitiveStrategy string        `json:"cognitiveStrategy"`
	CognitiveLoad     CognitiveLoad `json:"cognitiveLoad"`
	Scaffolding       []string      `json:"scaffolding,omitempty"`
}

// Script is a four-phase CLT-bLM script plus its generation context.
type Script struct {
	Version         int           `json:"version"`
	SubjectArea     string        `json:"subjectArea"`
	TargetBloom     BloomLevel    `json:"targetBloom"`
	TargetDuration  float64       `json:"targetDuration"`
	Phases          []ScriptPhase `json:"phases"`
	Keypoints       []Keypoint    `json:"keypoints,omitempty"`
	QualityWarning  string        `json:"qualityWarning,omitempty"`
	OptimizePasses  int           `json:"optimizePasses"`
}

// TotalDuration sums the phase durations.
func (s *Script) TotalDuration() float64 {
	total := 0.0
	for _, phase := range s.Phases {
		total += phase.Duration
	}
	return total
}

// Phase returns the named phase, or nil.
func (s *Script) Phase(name PhaseName) *ScriptPhase {
	for i := range s.Phases {
		if s.Phases[i].Name == name {
			return &s.Phases[i]
		}
	}
	return nil
}

// Validate checks the four-phase structure and the duration tolerance
// invariant: total phase duration within tolerance of the target.
func (s *Script) Validate(tolerance float64) error {
	if len(s.Phases) != len(phaseOrder) {
		return fmt.Errorf("script must have %d phases, has %d", len(phaseOrder), len(s.Phases))
	}
	for i, phase := range s.Phases {
		if phase.Name != phaseOrder[i] {
			return fmt.Errorf("phase %d: expected %q, got %q", i, phaseOrder[i], phase.Name)
		}
		if phase.Duration <= 0 {
			return fmt.Errorf("phase %q: duration must be positive", phase.Name)
		}
		if !phase.CognitiveLoad.InRange() {
			return fmt.Errorf("phase %q: cognitive load outside [0,1]", phase.Name)
		}
	}
	if s.TargetDuration > 0 {
		diff := s.TotalDuration() - s.TargetDuration
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance*s.TargetDuration {
			return fmt.Errorf("total duration %.1fs outside ±%.0f%% of target %.1fs",
				s.TotalDuration(), tolerance*100, s.TargetDuration)
		}
	}
	return nil
}

// VisualCue is advisory overlay metadata consumed only by rendering.
type VisualCue struct {
	Phase           PhaseName `json:"phase"`
	Concept         string    `json:"concept,omitempty"`
	BackgroundStyle string    `json:"backgroundStyle"`
	OverlayText     string    `json:"overlayText,omitempty"`
	Animation       string    `json:"animation"`
	Emphasis        string    `json:"emphasis,omitempty"`
	Anchor          *TimeRange `json:"anchor,omitempty"`
}

// OutputFile records one rendered artifact for a micro segment.
type OutputFile struct {
	Path            string  `json:"path"`
	Format          string  `json:"format"`
	SizeBytes       int64   `json:"sizeBytes"`
	DurationSeconds float64 `json:"durationSeconds"`
}
