package normalizer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/paragon-scan/paragongo/internal/ai"
	"github.com/paragon-scan/paragongo/internal/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCategorizer returns a canned suggestion or error and records calls.
type fakeCategorizer struct {
	mu         sync.Mutex
	calls      int
	lastReq    ai.Request
	suggestion *ai.Suggestion
	err        error
}

func (f *fakeCategorizer) SuggestCategory(ctx context.Context, req ai.Request) (*ai.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestion, nil
}

func testNormConfig() config.NormalizationConfig {
	return config.NormalizationConfig{
		BaseThreshold:         0.75,
		StrictThreshold:       0.9,
		ShortTextLength:       6,
		GroupingThreshold:     0.85,
		AIConfidenceThreshold: 0.8,
		PromotionThreshold:    10,
		FallbackCategory:      "Other",
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestService(store Store, categorizer ai.Categorizer) *Service {
	return NewService(store, categorizer, testNormConfig(), quietLogger())
}

func TestNormalizeItemAliasHit(t *testing.T) {
	store := newMemStore()
	dairy := mustCategory(t, store, "Nabiał")
	milk := mustProduct(t, store, "Mleko 3.2% 1L", dairy.ID)
	mustAlias(t, store, "mleko 3,2% 1l", milk.ID)

	svc := newTestService(store, nil)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{
		RawText:    "  Mleko   3,2% 1L  ",
		Quantity:   decimal.NewFromInt(1),
		TotalPrice: decimal.RequireFromString("4.99"),
	})
	require.NoError(t, err)

	assert.Equal(t, MatchAlias, res.Method)
	assert.Equal(t, 1.0, res.Confidence)
	require.NotNil(t, res.ProductID)
	assert.Equal(t, milk.ID, *res.ProductID)
	assert.Equal(t, dairy.ID, res.CategoryID)
	require.NotNil(t, res.AliasID)

	// Every hit counts one more confirmation on the matching alias.
	alias := store.aliasFor("mleko 3.2% 1l", milk.ID)
	require.NotNil(t, alias)
	assert.Equal(t, 2, alias.ConfirmationCount)
}

func TestNormalizeItemAliasCounterGrowsByOnePerCall(t *testing.T) {
	store := newMemStore()
	dairy := mustCategory(t, store, "Nabiał")
	milk := mustProduct(t, store, "Mleko 3.2% 1L", dairy.ID)
	mustAlias(t, store, "mleko 3.2% 1l", milk.ID)

	svc := newTestService(store, nil)

	for i := 0; i < 3; i++ {
		res, err := svc.NormalizeItem(context.Background(), ItemInput{RawText: "Mleko 3.2% 1L"})
		require.NoError(t, err)
		assert.Equal(t, MatchAlias, res.Method)

		alias := store.aliasFor("mleko 3.2% 1l", milk.ID)
		require.NotNil(t, alias)
		assert.Equal(t, i+2, alias.ConfirmationCount, "identical input increments the counter by exactly one per call")
	}
}

func TestNormalizeItemFuzzyMatchLearnsAlias(t *testing.T) {
	store := newMemStore()
	dairy := mustCategory(t, store, "Nabiał")
	yogurt := mustProduct(t, store, "Jogurt naturalny", dairy.ID)

	categorizer := &fakeCategorizer{}
	svc := newTestService(store, categorizer)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{
		RawText: "Jogurt natural",
	})
	require.NoError(t, err)

	assert.Equal(t, MatchFuzzy, res.Method)
	require.NotNil(t, res.ProductID)
	assert.Equal(t, yogurt.ID, *res.ProductID)
	assert.Equal(t, dairy.ID, res.CategoryID)
	assert.InDelta(t, 12.0/14.0, res.Similarity, 1e-9)
	assert.Equal(t, res.Similarity, res.Confidence)

	// The new text variant enters the dictionary so the next receipt
	// resolves via the alias tier.
	alias := store.aliasFor("jogurt natural", yogurt.ID)
	require.NotNil(t, alias)
	assert.Equal(t, 1, alias.ConfirmationCount)

	// A resolved item never reaches the AI.
	assert.Equal(t, 0, categorizer.calls)
}

func TestNormalizeItemAIAccepted(t *testing.T) {
	store := newMemStore()
	dairy := mustCategory(t, store, "Nabiał")
	mustCategory(t, store, "Pieczywo")

	categorizer := &fakeCategorizer{suggestion: &ai.Suggestion{Category: "Nabiał", Confidence: 0.95}}
	svc := newTestService(store, categorizer)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{
		RawText:      "Mleko 3.2% 1L",
		CategoryHint: "dairy",
		ShopID:       "shop-1",
	})
	require.NoError(t, err)

	assert.Equal(t, MatchAI, res.Method)
	assert.Nil(t, res.ProductID)
	assert.Equal(t, dairy.ID, res.CategoryID)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Equal(t, 0.95, res.AIConfidence)

	assert.Equal(t, 1, categorizer.calls)
	assert.Equal(t, "Mleko 3.2% 1L", categorizer.lastReq.Text)
	assert.Equal(t, "dairy", categorizer.lastReq.CategoryHint)
	assert.ElementsMatch(t, []string{"Nabiał", "Pieczywo"}, categorizer.lastReq.Categories)

	item, err := store.LineItemByID(context.Background(), res.ItemID)
	require.NoError(t, err)
	require.NotEmpty(t, item.AITrace)
	var trace struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Accepted   bool    `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(item.AITrace, &trace))
	assert.Equal(t, "Nabiał", trace.Category)
	assert.True(t, trace.Accepted)
}

func TestNormalizeItemAILowConfidenceDiscarded(t *testing.T) {
	store := newMemStore()
	mustCategory(t, store, "Nabiał")

	categorizer := &fakeCategorizer{suggestion: &ai.Suggestion{Category: "Nabiał", Confidence: 0.79}}
	svc := newTestService(store, categorizer)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{RawText: "Produkt nieznany"})
	require.NoError(t, err)

	assert.Equal(t, MatchFallback, res.Method)
	other, err := store.GetOrCreateCategory(context.Background(), "Other")
	require.NoError(t, err)
	assert.Equal(t, other.ID, res.CategoryID)

	item, err := store.LineItemByID(context.Background(), res.ItemID)
	require.NoError(t, err)
	var trace struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(item.AITrace, &trace))
	assert.False(t, trace.Accepted)
}

func TestNormalizeItemAIUnknownCategoryDiscarded(t *testing.T) {
	store := newMemStore()
	mustCategory(t, store, "Nabiał")

	categorizer := &fakeCategorizer{suggestion: &ai.Suggestion{Category: "Elektronika", Confidence: 0.95}}
	svc := newTestService(store, categorizer)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{RawText: "Produkt nieznany"})
	require.NoError(t, err)

	// A confident proposal outside the closed category list is worthless.
	assert.Equal(t, MatchFallback, res.Method)
	assert.Nil(t, res.ProductID)
}

func TestNormalizeItemAIFailureDegradesToFallback(t *testing.T) {
	store := newMemStore()
	mustCategory(t, store, "Nabiał")

	categorizer := &fakeCategorizer{err: &ai.ServiceError{Err: context.DeadlineExceeded, Transient: true}}
	svc := newTestService(store, categorizer)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{RawText: "Produkt nieznany"})
	require.NoError(t, err)

	assert.Equal(t, MatchFallback, res.Method)
	other, err := store.GetOrCreateCategory(context.Background(), "Other")
	require.NoError(t, err)
	assert.Equal(t, other.ID, res.CategoryID)
}

func TestNormalizeItemEmptyAfterCleaning(t *testing.T) {
	store := newMemStore()
	categorizer := &fakeCategorizer{suggestion: &ai.Suggestion{Category: "Nabiał", Confidence: 0.99}}
	svc := newTestService(store, categorizer)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{
		RawText:    "*** ---",
		TotalPrice: decimal.RequireFromString("2.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, MatchFallback, res.Method)
	assert.Equal(t, 0, categorizer.calls)

	// Price data survives even when the text is garbage.
	item, err := store.LineItemByID(context.Background(), res.ItemID)
	require.NoError(t, err)
	assert.True(t, item.TotalPrice.Equal(decimal.RequireFromString("2.50")))
}

func TestNormalizeItemNilCategorizer(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	res, err := svc.NormalizeItem(context.Background(), ItemInput{RawText: "Produkt nieznany"})
	require.NoError(t, err)
	assert.Equal(t, MatchFallback, res.Method)
}

func TestNormalizeBatchContinuesPastFailures(t *testing.T) {
	store := newMemStore()
	store.failCreateFor = "Zepsuty wiersz"
	dairy := mustCategory(t, store, "Nabiał")
	milk := mustProduct(t, store, "Mleko 3.2% 1L", dairy.ID)
	mustAlias(t, store, "mleko 3.2% 1l", milk.ID)

	svc := newTestService(store, nil)

	results := svc.NormalizeBatch(context.Background(), []ItemInput{
		{RawText: "Mleko 3.2% 1L"},
		{RawText: "Zepsuty wiersz"},
		{RawText: "Produkt nieznany"},
	})

	// One slot per input, in input order, so the failed item stays
	// addressable for the caller.
	require.Len(t, results, 3)

	require.NotNil(t, results[0].Result)
	assert.Equal(t, MatchAlias, results[0].Result.Method)
	assert.Empty(t, results[0].Error)

	assert.Nil(t, results[1].Result)
	assert.NotEmpty(t, results[1].Error)

	require.NotNil(t, results[2].Result)
	assert.Equal(t, MatchFallback, results[2].Result.Method)
}
