package segmentation

import (
	"strings"

	"microlesson/internal/lesson"
)

const (
	// Weights blending token overlap with transcript confidence into one
	// alignment score.
	overlapWeight    = 0.7
	confidenceWeight = 0.3

	// Longest run of transcript segments considered for a single phase.
	maxWindowSegments = 12

	// How many extra segments a window may absorb while hunting for a
	// sentence boundary.
	maxBoundaryExtension = 2

	minTokenLength = 3
)

// phaseAlignment is the best transcript window found for one script phase.
type phaseAlignment struct {
	First      int
	Last       int
	Range      lesson.TimeRange
	Confidence float64
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		})
		if len(token) >= minTokenLength {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// jaccard is the token-overlap ratio between two sets. Using the union in the
// denominator keeps windows tight: padding a window with unrelated speech
// lowers the score.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// alignPhase finds the contiguous transcript window starting at or after
// `from` whose text best overlaps the phase content. Ties keep the earliest,
// shortest window so identical inputs always align identically.
func alignPhase(segments []lesson.TranscriptSegment, from int, content string) (phaseAlignment, bool) {
	phaseTokens := tokenSet(tokenize(content))
	if len(phaseTokens) == 0 || from >= len(segments) {
		return phaseAlignment{}, false
	}

	best := phaseAlignment{First: -1}
	for i := from; i < len(segments); i++ {
		window := map[string]struct{}{}
		confidence := 0.0
		for j := i; j < len(segments) && j-i < maxWindowSegments; j++ {
			for _, token := range tokenize(segments[j].Text) {
				window[token] = struct{}{}
			}
			confidence += segments[j].Confidence
			span := float64(j - i + 1)
			score := overlapWeight*jaccard(phaseTokens, window) + confidenceWeight*(confidence/span)
			if score > best.Confidence {
				best = phaseAlignment{
					First:      i,
					Last:       j,
					Range:      lesson.TimeRange{Start: segments[i].StartTime, End: segments[j].EndTime},
					Confidence: score,
				}
			}
		}
	}
	return best, best.First >= 0
}

// extendToSentenceBoundary pushes the window end forward until the covered
// speech ends on sentence punctuation, within a small cap so one runaway
// sentence cannot swallow the next phase.
func extendToSentenceBoundary(segments []lesson.TranscriptSegment, al phaseAlignment) phaseAlignment {
	for extra := 0; extra < maxBoundaryExtension; extra++ {
		if sentenceTerminated(segments[al.Last].Text) || al.Last+1 >= len(segments) {
			break
		}
		al.Last++
		al.Range.End = segments[al.Last].EndTime
	}
	return al
}

func sentenceTerminated(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// proportionalSpans divides the video duration across phases in proportion to
// their scripted durations. Used when no confident alignment exists.
func proportionalSpans(script *lesson.Script, videoDuration float64) []lesson.TimeRange {
	total := script.TotalDuration()
	spans := make([]lesson.TimeRange, 0, len(script.Phases))
	cursor := 0.0
	for i, phase := range script.Phases {
		share := videoDuration / float64(len(script.Phases))
		if total > 0 {
			share = videoDuration * phase.Duration / total
		}
		end := cursor + share
		if i == len(script.Phases)-1 {
			end = videoDuration
		}
		spans = append(spans, lesson.TimeRange{Start: cursor, End: end})
		cursor = end
	}
	return spans
}

// KeypointAnchor computes the time range covered by a keypoint's related
// transcript segments together with an anchor confidence: the fraction of
// concept tokens present in that speech, scaled by the segments' recognition
// confidence. Returns false when the keypoint has no related segments.
func KeypointAnchor(transcript *lesson.Transcript, kp lesson.Keypoint) (lesson.TimeRange, float64, bool) {
	byID := make(map[int]lesson.TranscriptSegment, len(transcript.Segments))
	for _, seg := range transcript.Segments {
		byID[seg.ID] = seg
	}

	var anchor lesson.TimeRange
	var texts []string
	confidence := 0.0
	matched := 0
	for _, id := range kp.RelatedSegmentIDs {
		seg, ok := byID[id]
		if !ok {
			continue
		}
		if matched == 0 || seg.StartTime < anchor.Start {
			anchor.Start = seg.StartTime
		}
		if seg.EndTime > anchor.End {
			anchor.End = seg.EndTime
		}
		texts = append(texts, seg.Text)
		confidence += seg.Confidence
		matched++
	}
	if matched == 0 {
		return lesson.TimeRange{}, 0, false
	}

	conceptTokens := tokenize(kp.Concept)
	coverage := 1.0
	if len(conceptTokens) > 0 {
		speech := tokenSet(tokenize(strings.Join(texts, " ")))
		present := 0
		for _, token := range conceptTokens {
			if _, ok := speech[token]; ok {
				present++
			}
		}
		coverage = float64(present) / float64(len(conceptTokens))
	}
	return anchor, coverage * confidence / float64(matched), true
}
