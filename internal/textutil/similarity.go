package textutil

import (
	"strings"
)

// TrigramSimilarity computes a similarity score in [0,1] between two
// strings as the Jaccard index of their trigram sets. Comparison is
// case-insensitive; identical strings always score 1.0. Strings shorter
// than three runes contribute themselves as a single gram.
func TrigramSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	gramsA := trigrams(a)
	gramsB := trigrams(b)

	if len(gramsA) == 0 && len(gramsB) == 0 {
		return 1.0
	}
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0.0
	}

	intersection := 0
	for g := range gramsA {
		if gramsB[g] {
			intersection++
		}
	}
	union := len(gramsA) + len(gramsB) - intersection

	return float64(intersection) / float64(union)
}

func trigrams(s string) map[string]bool {
	s = strings.ToLower(strings.TrimSpace(s))
	grams := make(map[string]bool)

	runes := []rune(s)
	if len(runes) == 0 {
		return grams
	}
	if len(runes) < 3 {
		grams[string(runes)] = true
		return grams
	}

	for i := 0; i <= len(runes)-3; i++ {
		grams[string(runes[i:i+3])] = true
	}
	return grams
}
