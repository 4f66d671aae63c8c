package transcription

import (
	"sort"
	"strings"
	"unicode"
)

// scoreImportance assigns each segment an importance in [0,1] from its share
// of the transcript's informative vocabulary. Segments dense in longer,
// transcript-wide frequent terms score higher than filler.
func scoreImportance(texts []string) []float64 {
	frequency := make(map[string]int)
	perSegment := make([]map[string]int, len(texts))
	for i, text := range texts {
		counts := make(map[string]int)
		for _, word := range informativeWords(text) {
			counts[word]++
			frequency[word]++
		}
		perSegment[i] = counts
	}

	scores := make([]float64, len(texts))
	maxScore := 0.0
	for i, counts := range perSegment {
		total := 0.0
		for word, n := range counts {
			if frequency[word] > 1 {
				total += float64(n) * 1.5
			} else {
				total += float64(n)
			}
		}
		words := len(strings.Fields(texts[i]))
		if words > 0 {
			scores[i] = total / float64(words)
		}
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}
	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}
	return scores
}

// keyTopics extracts up to three of the most frequent informative words.
func keyTopics(text string) []string {
	counts := make(map[string]int)
	for _, word := range informativeWords(text) {
		counts[word]++
	}
	if len(counts) == 0 {
		return nil
	}
	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 3 {
		words = words[:3]
	}
	return words
}

var fillerWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "there": {}, "their": {},
	"these": {}, "those": {}, "which": {}, "would": {}, "could": {},
	"should": {}, "going": {}, "really": {}, "thing": {}, "things": {},
	"right": {}, "because": {}, "before": {}, "where": {}, "still": {},
}

func informativeWords(text string) []string {
	var words []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len(word) < 5 {
			continue
		}
		if _, filler := fillerWords[word]; filler {
			continue
		}
		words = append(words, word)
	}
	return words
}
