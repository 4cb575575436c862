package normalizer

import (
	"unicode/utf8"

	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/textutil"
)

// matchThresholdFor returns the similarity a product match must reach for
// the given normalized text. Short texts get the strict threshold to
// suppress false positives on short, generic words.
func (s *Service) matchThresholdFor(normText string) float64 {
	if utf8.RuneCountInString(normText) < s.cfg.ShortTextLength {
		return s.cfg.StrictThreshold
	}
	return s.cfg.BaseThreshold
}

// bestProductMatch scans the canonical dictionary for the product whose
// normalized name is most similar to the text. Returns nil when nothing
// reaches the threshold.
func (s *Service) bestProductMatch(normText string, products []models.CanonicalProduct) (*models.CanonicalProduct, float64) {
	threshold := s.matchThresholdFor(normText)

	var best *models.CanonicalProduct
	bestScore := 0.0

	for i := range products {
		score := textutil.TrigramSimilarity(normText, products[i].NormalizedName)
		if score < threshold {
			continue
		}
		if best == nil || score > bestScore {
			best = &products[i]
			bestScore = score
		}
	}

	return best, bestScore
}
