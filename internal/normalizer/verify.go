package normalizer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/textutil"
	"github.com/sirupsen/logrus"
)

// VerifyItem handles a human verification or correction of a line item.
// The corrected text is re-run through alias and fuzzy resolution; when
// it still resolves to nothing, the text enters the candidate workflow
// and may trigger a promotion.
func (s *Service) VerifyItem(ctx context.Context, itemID uuid.UUID, correctedText, correctedCategory string) (*Result, error) {
	item, err := s.store.LineItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	clean := textutil.Clean(correctedText)
	if clean == "" {
		return nil, fmt.Errorf("corrected text %q: %w", correctedText, ErrEmptyText)
	}
	norm := textutil.Normalize(clean)

	var correctedCatID *uint
	if correctedCategory != "" {
		cat, err := s.store.GetOrCreateCategory(ctx, correctedCategory)
		if err != nil {
			return nil, err
		}
		correctedCatID = &cat.ID
	}

	item.CleanText = clean
	item.Verified = true
	item.VerificationSource = models.VerificationUser

	// Re-run the dictionary tiers on the corrected text.
	res, err := s.resolveDictionary(ctx, norm, item)
	if err != nil {
		return nil, err
	}

	if res.product != nil {
		return s.applyVerifiedMatch(ctx, item, res, correctedCatID)
	}

	// Still unresolved: keep the user's category and enter the candidate
	// workflow.
	item.ProductID = nil
	item.MatchMethod = string(MatchFallback)
	item.MatchConfidence = 0
	if correctedCatID != nil {
		item.CategoryID = correctedCatID
	} else if item.CategoryID == nil {
		fallback, err := s.store.GetOrCreateCategory(ctx, s.cfg.FallbackCategory)
		if err != nil {
			return nil, err
		}
		item.CategoryID = &fallback.ID
	}
	if err := s.store.UpdateLineItem(ctx, item); err != nil {
		return nil, err
	}

	cand, err := s.groupCandidate(ctx, norm, clean, correctedCatID)
	if err != nil {
		return nil, err
	}

	if cand.Status == models.CandidateStatusPending && cand.ConfirmationCount >= s.cfg.PromotionThreshold {
		if err := s.promote(ctx, cand); err != nil {
			// Promotion is retryable on a later confirmation; the
			// verification itself has succeeded.
			s.log.WithError(err).WithField("candidate", cand.NormalizedName).Error("Candidate promotion failed")
		}
	}

	return &Result{
		ItemID:     item.ID,
		CategoryID: *item.CategoryID,
		Method:     MatchFallback,
	}, nil
}

// resolveDictionary runs only the alias and fuzzy tiers, using the line
// item's own scope. The AI step is not consulted for verified text; the
// human already supplied the category.
func (s *Service) resolveDictionary(ctx context.Context, norm string, item *models.LineItem) (*resolution, error) {
	shopID, userID := deref(item.ShopID), deref(item.UserID)

	aliases, err := s.store.AliasesByText(ctx, norm)
	if err != nil {
		return nil, err
	}
	if a := pickAlias(aliases, shopID, userID); a != nil && a.Product != nil {
		return &resolution{norm: norm, product: a.Product, method: MatchAlias, aliasID: &a.ID}, nil
	}

	products, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}
	if best, score := s.bestProductMatch(norm, products); best != nil {
		return &resolution{norm: norm, product: best, method: MatchFuzzy, similarity: score, learn: true}, nil
	}

	return &resolution{norm: norm, method: MatchFallback}, nil
}

// applyVerifiedMatch persists a successful re-resolution: the item gets
// the product, the user-corrected category wins over the product's own,
// and the pairing is recorded as a confirmed alias.
func (s *Service) applyVerifiedMatch(ctx context.Context, item *models.LineItem, res *resolution, correctedCatID *uint) (*Result, error) {
	categoryID := res.product.CategoryID
	if correctedCatID != nil {
		categoryID = *correctedCatID
	}

	item.ProductID = &res.product.ID
	item.CategoryID = &categoryID
	item.MatchMethod = string(res.method)
	confidence := 1.0
	if res.method == MatchFuzzy {
		confidence = res.similarity
	}
	item.MatchConfidence = confidence

	if err := s.store.UpsertAlias(ctx, res.norm, res.product.ID, item.ShopID, item.UserID); err != nil {
		s.log.WithError(err).WithField("text", res.norm).Warn("Failed to record verified alias")
	}

	if err := s.store.UpdateLineItem(ctx, item); err != nil {
		return nil, err
	}

	return &Result{
		ItemID:     item.ID,
		CategoryID: categoryID,
		ProductID:  item.ProductID,
		Method:     res.method,
		Confidence: confidence,
		AliasID:    res.aliasID,
		Similarity: res.similarity,
	}, nil
}

// groupCandidate buckets an unresolved verified text: reuse the closest
// pending candidate above the grouping threshold, otherwise open a new
// bucket. Either way the confirmation counter moves through an atomic
// upsert.
func (s *Service) groupCandidate(ctx context.Context, norm, representative string, categoryID *uint) (*models.ProductCandidate, error) {
	pending, err := s.store.PendingCandidates(ctx)
	if err != nil {
		return nil, err
	}

	var best *models.ProductCandidate
	bestScore := 0.0
	for i := range pending {
		score := textutil.TrigramSimilarity(norm, pending[i].NormalizedName)
		if score >= s.cfg.GroupingThreshold && score > bestScore {
			best = &pending[i]
			bestScore = score
		}
	}

	if best != nil {
		s.log.WithFields(logrus.Fields{
			"text":   norm,
			"bucket": best.NormalizedName,
			"score":  bestScore,
		}).Debug("Reusing candidate bucket")
		return s.store.IncrementCandidate(ctx, best.ID)
	}

	return s.store.ConfirmCandidate(ctx, norm, representative, categoryID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
