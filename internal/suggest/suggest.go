package suggest

import (
	"sort"

	"github.com/xrash/smetrics"
)

const (
	// Threshold is the minimum Jaro-Winkler similarity for a suggestion.
	Threshold = 0.80
	// MaxSuggestions caps the number of suggestions returned.
	MaxSuggestions = 5
)

type candidate struct {
	score float64
	value string
}

// DidYouMean returns up to MaxSuggestions values closest to query, best first.
func DidYouMean(query string, values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var candidates []candidate
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}

		score := Similarity(query, v)
		if score >= Threshold {
			candidates = append(candidates, candidate{score: score, value: v})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]string, 0, MaxSuggestions)
	for i := 0; i < len(candidates) && i < MaxSuggestions; i++ {
		out = append(out, candidates[i].value)
	}
	return out
}

// Similarity is the Jaro-Winkler similarity of a and b in [0, 1]. The prefix
// bonus is always applied and counts the whole common prefix.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	score := smetrics.JaroWinkler(a, b, 0, commonPrefix(a, b))
	if score > 1 {
		return 1
	}
	return score
}

// commonPrefix is the length of the shared leading run of a and b. smetrics
// counts every equal position inside the prefix window, so the window has to
// stop at the first difference.
func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
