package analysis

import (
	"strings"

	"microlesson/internal/lesson"
)

const baseLearningTimeSeconds = 30.0

func difficultyValue(d lesson.Difficulty) float64 {
	switch d {
	case lesson.DifficultyBeginner:
		return 0.3
	case lesson.DifficultyIntermediate:
		return 0.6
	case lesson.DifficultyAdvanced:
		return 0.9
	default:
		return 0.6
	}
}

func difficultyMultiplier(d lesson.Difficulty) float64 {
	switch d {
	case lesson.DifficultyBeginner:
		return 1.0
	case lesson.DifficultyIntermediate:
		return 1.3
	case lesson.DifficultyAdvanced:
		return 1.6
	default:
		return 1.3
	}
}

func bloomValue(level lesson.BloomLevel) float64 {
	rank := lesson.BloomRank(level)
	if rank < 0 {
		rank = 1
	}
	return float64(rank+1) / 6.0
}

func bloomMultiplier(level lesson.BloomLevel) float64 {
	rank := lesson.BloomRank(level)
	if rank < 0 {
		rank = 1
	}
	return 1.0 + 0.1*float64(rank)
}

// enhanceKeypoint fills the locally derived fields of a keypoint from the
// transcript segments that mention its concept.
func enhanceKeypoint(kp *lesson.Keypoint, segments []lesson.TranscriptSegment) {
	concept := strings.ToLower(strings.TrimSpace(kp.Concept))

	var related []lesson.TranscriptSegment
	for _, seg := range segments {
		if concept != "" && strings.Contains(strings.ToLower(seg.Text), concept) {
			related = append(related, seg)
			kp.RelatedSegmentIDs = append(kp.RelatedSegmentIDs, seg.ID)
		}
	}

	if len(related) > 0 {
		confidence := 0.0
		duration := 0.0
		mentions := 0
		words := 0
		for _, seg := range related {
			confidence += seg.Confidence
			duration += seg.EndTime - seg.StartTime
			mentions += strings.Count(strings.ToLower(seg.Text), concept)
			words += len(strings.Fields(seg.Text))
		}
		kp.AverageConfidence = confidence / float64(len(related))
		kp.TotalDuration = duration
		if words > 0 {
			kp.ConceptualDensity = clamp01(float64(mentions) / float64(words) * 10)
		}
	}

	kp.CognitiveLoadEstimate = clamp01(
		0.5*difficultyValue(kp.Difficulty) +
			0.4*bloomValue(kp.BloomLevel) +
			0.2*kp.ConceptualDensity)

	kp.LearningTimeEstimate = baseLearningTimeSeconds *
		difficultyMultiplier(kp.Difficulty) *
		bloomMultiplier(kp.BloomLevel) *
		(1 + kp.ConceptualDensity)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
