// Package normalizer implements the receipt line-item normalization and
// collective-learning pipeline: alias resolution, fuzzy product matching,
// confidence-gated AI categorization and threshold-triggered promotion of
// crowd-verified text into the canonical dictionary.
package normalizer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/paragon-scan/paragongo/internal/ai"
	"github.com/paragon-scan/paragongo/internal/config"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/textutil"
	"github.com/sirupsen/logrus"
)

// Service runs the normalization pipeline. The categorizer may be nil,
// which disables the AI step and sends unresolved items straight to the
// fallback category.
type Service struct {
	store Store
	ai    ai.Categorizer
	cfg   config.NormalizationConfig
	log   *logrus.Logger
}

// NewService wires the pipeline together.
func NewService(store Store, categorizer ai.Categorizer, cfg config.NormalizationConfig, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		store: store,
		ai:    categorizer,
		cfg:   cfg,
		log:   log,
	}
}

// resolution is the outcome of the transaction-free resolution phase.
type resolution struct {
	clean      string
	norm       string
	product    *models.CanonicalProduct
	method     MatchMethod
	aliasID    *uint
	similarity float64
	suggestion *ai.Suggestion // accepted AI suggestion, nil otherwise
	trace      *aiTrace
	learn      bool // dictionary hit: count one more confirmation for the pairing
}

// aiTrace is the audit record of an AI consultation, accepted or not.
type aiTrace struct {
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	Accepted   bool    `json:"accepted"`
	Error      string  `json:"error,omitempty"`
}

// NormalizeItem resolves one line item in two explicit phases: a
// transaction-free resolution phase (dictionary lookups and the AI call)
// followed by a short persistence phase. Identity resolution is
// best-effort; price and quantity data is persisted even when the text
// resolves to nothing.
func (s *Service) NormalizeItem(ctx context.Context, in ItemInput) (*Result, error) {
	clean := textutil.Clean(in.RawText)
	if clean == "" {
		s.log.WithField("raw_text", in.RawText).Warn("Line item text empty after cleaning, using fallback category")
		return s.persist(ctx, in, &resolution{method: MatchFallback})
	}

	res, err := s.resolve(ctx, clean, in)
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, in, res)
}

// NormalizeBatch normalizes sibling items of one receipt. Items are
// independent; a failure on one item does not abort the rest of the
// batch. The returned slice always has one slot per input, in input
// order, with failed items carrying an error instead of a result.
func (s *Service) NormalizeBatch(ctx context.Context, inputs []ItemInput) []BatchResult {
	results := make([]BatchResult, len(inputs))
	for i, in := range inputs {
		r, err := s.NormalizeItem(ctx, in)
		if err != nil {
			s.log.WithError(err).WithField("raw_text", in.RawText).Error("Failed to normalize line item")
			results[i] = BatchResult{Error: err.Error()}
			continue
		}
		results[i] = BatchResult{Result: r}
	}
	return results
}

// resolve runs the lookup chain: alias, fuzzy, AI. No data-store write
// happens here and no transaction is held across the AI call.
func (s *Service) resolve(ctx context.Context, clean string, in ItemInput) (*resolution, error) {
	norm := textutil.Normalize(clean)

	aliases, err := s.store.AliasesByText(ctx, norm)
	if err != nil {
		return nil, err
	}
	if a := pickAlias(aliases, in.ShopID, in.UserID); a != nil && a.Product != nil {
		return &resolution{
			clean:   clean,
			norm:    norm,
			product: a.Product,
			method:  MatchAlias,
			aliasID: &a.ID,
			learn:   true,
		}, nil
	}

	products, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}
	if best, score := s.bestProductMatch(norm, products); best != nil {
		return &resolution{
			clean:      clean,
			norm:       norm,
			product:    best,
			method:     MatchFuzzy,
			similarity: score,
			learn:      true,
		}, nil
	}

	res := &resolution{clean: clean, norm: norm, method: MatchFallback}
	if s.ai == nil {
		return res, nil
	}

	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	suggestion, aiErr := s.ai.SuggestCategory(ctx, ai.Request{
		Text:         clean,
		CategoryHint: in.CategoryHint,
		ShopID:       in.ShopID,
		Categories:   names,
	})
	if aiErr != nil {
		// Degrade to "no suggestion" - AI failures never abort the pipeline.
		s.log.WithError(aiErr).WithField("text", clean).Warn("AI categorization failed")
		res.trace = &aiTrace{Error: aiErr.Error()}
		return res, nil
	}

	res.trace = &aiTrace{Category: suggestion.Category, Confidence: suggestion.Confidence}
	if suggestion.Category != "" &&
		suggestion.Confidence >= s.cfg.AIConfidenceThreshold &&
		containsFold(names, suggestion.Category) {
		res.method = MatchAI
		res.suggestion = suggestion
		res.trace.Accepted = true
	} else {
		s.log.WithFields(logrus.Fields{
			"text":       clean,
			"category":   suggestion.Category,
			"confidence": suggestion.Confidence,
		}).Debug("AI suggestion discarded")
	}

	return res, nil
}

// persist is the short write phase: one confirmation on the alias for a
// dictionary hit, category assignment and the line item row itself.
func (s *Service) persist(ctx context.Context, in ItemInput, res *resolution) (*Result, error) {
	categoryID, err := s.assignCategory(ctx, res)
	if err != nil {
		return nil, err
	}

	if res.learn && res.product != nil {
		if err := s.store.UpsertAlias(ctx, res.norm, res.product.ID, optional(in.ShopID), optional(in.UserID)); err != nil {
			// Dictionary reinforcement is best-effort; the item itself
			// must still be persisted.
			s.log.WithError(err).WithField("text", res.norm).Warn("Failed to reinforce alias")
		}
	}

	item := &models.LineItem{
		ReceiptID:     in.ReceiptID,
		RawText:       in.RawText,
		CleanText:     res.clean,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		TotalPrice:    in.TotalPrice,
		OCRConfidence: in.OCRConfidence,
		CategoryHint:  optional(in.CategoryHint),
		ShopID:        optional(in.ShopID),
		UserID:        optional(in.UserID),
		CategoryID:    &categoryID,
		MatchMethod:   string(res.method),
	}
	if res.product != nil {
		item.ProductID = &res.product.ID
	}
	if res.trace != nil {
		if raw, err := json.Marshal(res.trace); err == nil {
			item.AITrace = raw
		}
	}

	result := &Result{
		CategoryID: categoryID,
		ProductID:  item.ProductID,
		Method:     res.method,
		AliasID:    res.aliasID,
		Similarity: res.similarity,
	}
	switch res.method {
	case MatchAlias:
		result.Confidence = 1.0
	case MatchFuzzy:
		result.Confidence = res.similarity
	case MatchAI:
		result.Confidence = res.suggestion.Confidence
		result.AIConfidence = res.suggestion.Confidence
	}
	item.MatchConfidence = result.Confidence

	if err := s.store.CreateLineItem(ctx, item); err != nil {
		return nil, err
	}
	result.ItemID = item.ID

	return result, nil
}

// assignCategory decides the final category: the resolved product's
// category, then an accepted AI suggestion, then the permanent fallback.
// Always yields a concrete category id.
func (s *Service) assignCategory(ctx context.Context, res *resolution) (uint, error) {
	if res.product != nil {
		return res.product.CategoryID, nil
	}
	if res.suggestion != nil {
		cat, err := s.store.GetOrCreateCategory(ctx, res.suggestion.Category)
		if err != nil {
			return 0, err
		}
		return cat.ID, nil
	}
	fallback, err := s.store.GetOrCreateCategory(ctx, s.cfg.FallbackCategory)
	if err != nil {
		return 0, err
	}
	return fallback.ID, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
