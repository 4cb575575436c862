package normalizer

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchMethod is the closed set of ways a line item can acquire its
// category and product identity.
type MatchMethod string

const (
	// MatchAlias is an exact, case-insensitive dictionary hit.
	MatchAlias MatchMethod = "alias"
	// MatchFuzzy is a trigram similarity hit against canonical product names.
	MatchFuzzy MatchMethod = "fuzzy"
	// MatchAI is an accepted category suggestion from the external service.
	MatchAI MatchMethod = "ai"
	// MatchFallback is the catch-all category with no product identity.
	MatchFallback MatchMethod = "fallback"
)

// ItemInput is one raw OCR'd line item as supplied by the receipt
// processing orchestrator.
type ItemInput struct {
	ReceiptID     *uuid.UUID
	RawText       string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	OCRConfidence float64
	CategoryHint  string
	ShopID        string
	UserID        string
}

// Result is the normalized outcome for one line item. CategoryID is
// always set; ProductID only when an identity was resolved. The
// method-specific fields carry the evidence behind the match: the alias
// row that hit, the similarity score of a fuzzy match or the confidence
// of an accepted AI suggestion.
type Result struct {
	ItemID       uuid.UUID   `json:"itemId"`
	CategoryID   uint        `json:"categoryId"`
	ProductID    *uint       `json:"productId,omitempty"`
	Method       MatchMethod `json:"method"`
	Confidence   float64     `json:"confidence"`
	AliasID      *uint       `json:"aliasId,omitempty"`
	Similarity   float64     `json:"similarity,omitempty"`
	AIConfidence float64     `json:"aiConfidence,omitempty"`
}

// BatchResult is one slot of a batch response. Exactly one of Result and
// Error is set, and slot i always corresponds to input item i, so the
// caller can tell which items failed.
type BatchResult struct {
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}
