package scriptgen

import (
	"fmt"
	"math"

	"microlesson/internal/lesson"
)

// A single rescale pass may stretch or compress phases by at most this much
// before the content no longer matches its allotted time and a regeneration
// is requested instead.
const (
	minScaleFactor = 0.75
	maxScaleFactor = 1.25
)

func withinTolerance(total, target, tolerance float64) bool {
	if target <= 0 {
		return true
	}
	return math.Abs(total-target) <= tolerance*target
}

// scalePhases multiplies every phase duration by factor.
func scalePhases(script *lesson.Script, factor float64) {
	for i := range script.Phases {
		script.Phases[i].Duration = math.Round(script.Phases[i].Duration*factor*10) / 10
	}
}

// rebalanceGuidance describes the needed adjustment for a regeneration pass.
func rebalanceGuidance(total, target float64) string {
	if total > target {
		return fmt.Sprintf(
			"The previous script ran %.0f seconds but the target is %.0f seconds. Compress the content: fewer examples, tighter wording, same four phases.",
			total, target)
	}
	return fmt.Sprintf(
		"The previous script ran %.0f seconds but the target is %.0f seconds. Expand the content with one more worked example in the deliver phase.",
		total, target)
}
