package discovery

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"microlesson/internal/textutil"
)

const (
	weightQuality    = 0.6
	weightViews      = 0.3
	weightEngagement = 0.1

	// viewLogCeiling normalizes log10(views) so roughly 100M views maps to 1.0.
	viewLogCeiling = 8.0

	neutralQualityScore = 5.0
)

// nonEducationalTerms disqualify a candidate title unless an educational
// context term also appears.
var nonEducationalTerms = []string{
	"funny",
	"prank",
	"reaction",
	"meme",
	"vlog",
	"unboxing",
	"gameplay",
	"music video",
	"official trailer",
	"compilation",
}

var educationalContextTerms = []string{
	"tutorial",
	"lecture",
	"course",
	"lesson",
	"explained",
	"introduction",
	"learn",
	"how to",
	"education",
}

var titleFolder = cases.Fold()

// IsEducationalTitle reports whether a title survives the blacklist filter.
func IsEducationalTitle(title string) bool {
	folded := titleFolder.String(title)
	blacklisted := false
	for _, term := range nonEducationalTerms {
		if strings.Contains(folded, titleFolder.String(term)) {
			blacklisted = true
			break
		}
	}
	if !blacklisted {
		return true
	}
	for _, term := range educationalContextTerms {
		if strings.Contains(folded, titleFolder.String(term)) {
			return true
		}
	}
	return false
}

// DisplayTitle normalizes a catalog title for presentation.
func DisplayTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	return cases.Title(language.English, cases.NoLower).String(title)
}

// CompositeScore blends quality, popularity, and engagement into one rank key.
// Quality is on a 1-10 scale; views enter as normalized log10; engagement is
// the like/view ratio clamped to [0,1].
func CompositeScore(quality float64, views uint64, engagement float64) float64 {
	normalizedQuality := clamp01(quality / 10.0)

	viewScore := 0.0
	if views > 0 {
		viewScore = clamp01(math.Log10(float64(views)) / viewLogCeiling)
	}

	return weightQuality*normalizedQuality +
		weightViews*viewScore +
		weightEngagement*clamp01(engagement)
}

// EngagementRate computes the like/view ratio, clamped to [0,1].
func EngagementRate(likes, views uint64) float64 {
	if views == 0 {
		return 0
	}
	return clamp01(float64(likes) / float64(views))
}

// SortCandidates orders candidates by composite score descending; ties break
// by higher view count for determinism.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CompositeScore != candidates[j].CompositeScore {
			return candidates[i].CompositeScore > candidates[j].CompositeScore
		}
		return candidates[i].ViewCount > candidates[j].ViewCount
	})
}

// duplicateTitleThreshold is the cosine similarity above which two candidate
// titles are treated as the same lesson reuploaded.
const duplicateTitleThreshold = 0.9

// DedupeCandidates collapses near-identical titles, keeping the first (and
// therefore higher-ranked) occurrence. Candidates must already be sorted.
func DedupeCandidates(candidates []Candidate) []Candidate {
	if len(candidates) < 2 {
		return candidates
	}
	kept := make([]Candidate, 0, len(candidates))
	prints := make([]*textutil.Fingerprint, 0, len(candidates))
	for _, cand := range candidates {
		fp := textutil.NewFingerprint(cand.Title)
		duplicate := false
		for _, seen := range prints {
			if textutil.CosineSimilarity(fp, seen) >= duplicateTitleThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, cand)
		prints = append(prints, fp)
	}
	return kept
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
