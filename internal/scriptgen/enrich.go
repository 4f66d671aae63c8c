package scriptgen

import (
	"fmt"
	"strings"

	"microlesson/internal/lesson"
)

// bloomRangeForDifficulty maps the dominant content difficulty to the range
// of Bloom levels a lesson at that tier should target.
func bloomRangeForDifficulty(d lesson.Difficulty) (lesson.BloomLevel, lesson.BloomLevel) {
	switch d {
	case lesson.DifficultyBeginner:
		return lesson.BloomRemember, lesson.BloomApply
	case lesson.DifficultyAdvanced:
		return lesson.BloomApply, lesson.BloomCreate
	default:
		return lesson.BloomUnderstand, lesson.BloomEvaluate
	}
}

// targetBloomLevel picks the midpoint of the allowed Bloom range for the
// keypoints' dominant difficulty.
func targetBloomLevel(keypoints []lesson.Keypoint) lesson.BloomLevel {
	counts := map[lesson.Difficulty]int{}
	for _, kp := range keypoints {
		counts[kp.Difficulty]++
	}
	dominant := lesson.DifficultyIntermediate
	best := 0
	for _, tier := range []lesson.Difficulty{lesson.DifficultyBeginner, lesson.DifficultyIntermediate, lesson.DifficultyAdvanced} {
		if counts[tier] > best {
			best = counts[tier]
			dominant = tier
		}
	}

	low, high := bloomRangeForDifficulty(dominant)
	levels := lesson.BloomLevels()
	lowRank, highRank := lesson.BloomRank(low), lesson.BloomRank(high)
	return levels[(lowRank+highRank)/2]
}

// contentComplexity averages the keypoints' cognitive load estimates.
func contentComplexity(keypoints []lesson.Keypoint) float64 {
	if len(keypoints) == 0 {
		return 0.5
	}
	total := 0.0
	for _, kp := range keypoints {
		total += kp.CognitiveLoadEstimate
	}
	return clamp01(total / float64(len(keypoints)))
}

// phaseRoleWeight scales intrinsic load by the phase's instructional role.
var phaseRoleWeight = map[lesson.PhaseName]float64{
	lesson.PhasePrepare:  0.6,
	lesson.PhaseInitiate: 0.8,
	lesson.PhaseDeliver:  1.0,
	lesson.PhaseEnd:      0.5,
}

// enrichScript fills scaffolding and cognitive load for every phase.
func enrichScript(script *lesson.Script, keypoints []lesson.Keypoint) {
	complexity := contentComplexity(keypoints)
	germane := float64(lesson.BloomRank(script.TargetBloom)+1) / 6.0

	for i := range script.Phases {
		phase := &script.Phases[i]
		words := len(strings.Fields(phase.Content))

		phase.CognitiveLoad = lesson.CognitiveLoad{
			Intrinsic: clamp01(complexity * phaseRoleWeight[phase.Name]),
			// Longer phase text means more presentation overhead for the learner.
			Extraneous: clamp01(float64(words) / 250.0),
			Germane:    clamp01(germane),
		}
		phase.Scaffolding = scaffoldingFor(phase.Name, keypoints)
	}
}

// scaffoldingFor builds phase-specific instructional supports from the
// top keypoints.
func scaffoldingFor(name lesson.PhaseName, keypoints []lesson.Keypoint) []string {
	concepts := make([]string, 0, 3)
	for _, kp := range keypoints {
		concepts = append(concepts, kp.Concept)
		if len(concepts) == 3 {
			break
		}
	}
	if len(concepts) == 0 {
		concepts = []string{"the topic"}
	}

	switch name {
	case lesson.PhasePrepare:
		return []string{
			fmt.Sprintf("Activate prior knowledge: ask what learners already associate with %s", concepts[0]),
			"Preview the learning goal in one sentence",
		}
	case lesson.PhaseInitiate:
		return []string{
			fmt.Sprintf("Pose a guiding question about %s", concepts[0]),
			"State why the concept matters before defining it",
		}
	case lesson.PhaseDeliver:
		supports := []string{
			fmt.Sprintf("Chunk the explanation into one idea at a time: %s", strings.Join(concepts, ", ")),
		}
		if len(concepts) > 1 {
			supports = append(supports, fmt.Sprintf("Bridge explicitly from %s to %s", concepts[0], concepts[1]))
		}
		return supports
	case lesson.PhaseEnd:
		return []string{
			fmt.Sprintf("Reflection prompt: explain %s in your own words", concepts[0]),
			"Summarize the one takeaway learners should retain",
		}
	default:
		return nil
	}
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
