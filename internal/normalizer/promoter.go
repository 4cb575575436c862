package normalizer

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/textutil"
	"github.com/sirupsen/logrus"
)

// promote converts a sufficiently-confirmed candidate into a canonical
// dictionary entry and backfills history. The status-guarded transition
// in the store guarantees at-most-once promotion under concurrent
// confirmations; everything after the guard runs in its own short
// transactions and is retryable.
func (s *Service) promote(ctx context.Context, cand *models.ProductCandidate) error {
	items, err := s.store.VerifiedUnresolvedItems(ctx)
	if err != nil {
		return err
	}

	// Gather history at the product-matching threshold, not the looser
	// grouping threshold.
	var matched []models.LineItem
	for _, it := range items {
		norm := textutil.Normalize(it.CleanText)
		if norm == "" {
			norm = textutil.Normalize(it.RawText)
		}
		if textutil.TrigramSimilarity(norm, cand.NormalizedName) >= s.matchThresholdFor(norm) {
			matched = append(matched, it)
		}
	}

	if len(matched) == 0 {
		// Race with concurrent edits/deletions. Leave the candidate
		// pending; a later confirmation retries the promotion.
		s.log.WithField("candidate", cand.NormalizedName).Warn("Promotion found no backfill items, leaving candidate pending")
		return nil
	}

	name := modeText(matched)
	categoryID, err := s.modeCategory(ctx, matched, cand)
	if err != nil {
		return err
	}

	// The store takes the status guard and creates the product in one
	// transaction, so a losing writer leaves no orphan dictionary entry.
	product, promoted, err := s.store.PromoteCandidate(ctx, cand.ID, name, categoryID)
	if err != nil {
		return err
	}
	if !promoted {
		s.log.WithField("candidate", cand.NormalizedName).Debug("Candidate already promoted by a concurrent writer")
		return nil
	}

	ids := make([]uuid.UUID, 0, len(matched))
	for _, it := range matched {
		ids = append(ids, it.ID)
	}
	if err := s.store.AssignProductToItems(ctx, ids, product.ID, product.CategoryID); err != nil {
		// The candidate is already approved; backfill is eventually
		// consistent and safe to retry without affecting future lookups.
		return err
	}

	for _, variant := range distinctTexts(matched) {
		if err := s.store.UpsertAlias(ctx, variant, product.ID, nil, nil); err != nil {
			s.log.WithError(err).WithField("text", variant).Warn("Failed to record promoted alias variant")
		}
	}

	s.log.WithFields(logrus.Fields{
		"candidate": cand.NormalizedName,
		"product":   product.Name,
		"items":     len(matched),
	}).Info("Candidate promoted to canonical product")

	return nil
}

// modeText returns the most frequent clean text among the items; ties go
// to the lexicographically smallest so the result is deterministic.
func modeText(items []models.LineItem) string {
	counts := make(map[string]int)
	for _, it := range items {
		text := it.CleanText
		if text == "" {
			text = textutil.Clean(it.RawText)
		}
		counts[text]++
	}

	best, bestCount := "", 0
	for text, n := range counts {
		if n > bestCount || (n == bestCount && text < best) {
			best, bestCount = text, n
		}
	}
	return best
}

// modeCategory returns the most frequent category among the items,
// falling back to the candidate's observed category and finally the
// permanent fallback.
func (s *Service) modeCategory(ctx context.Context, items []models.LineItem, cand *models.ProductCandidate) (uint, error) {
	counts := make(map[uint]int)
	for _, it := range items {
		if it.CategoryID != nil {
			counts[*it.CategoryID]++
		}
	}

	if len(counts) > 0 {
		ids := make([]uint, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		best, bestCount := ids[0], 0
		for _, id := range ids {
			if counts[id] > bestCount {
				best, bestCount = id, counts[id]
			}
		}
		return best, nil
	}

	if cand.ObservedCategoryID != nil {
		return *cand.ObservedCategoryID, nil
	}

	fallback, err := s.store.GetOrCreateCategory(ctx, s.cfg.FallbackCategory)
	if err != nil {
		return 0, err
	}
	return fallback.ID, nil
}

// distinctTexts returns the distinct normalized text variants among the items.
func distinctTexts(items []models.LineItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		norm := textutil.Normalize(it.CleanText)
		if norm == "" {
			norm = textutil.Normalize(it.RawText)
		}
		if norm != "" && !seen[norm] {
			seen[norm] = true
			out = append(out, norm)
		}
	}
	return out
}
