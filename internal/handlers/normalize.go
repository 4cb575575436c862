package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/normalizer"
	"github.com/shopspring/decimal"
)

// NormalizeRequest is a batch of raw line items from the receipt
// processing orchestrator, together with their scoping context.
type NormalizeRequest struct {
	ReceiptID *uuid.UUID          `json:"receiptId,omitempty"`
	ShopID    string              `json:"shopId,omitempty"`
	UserID    string              `json:"userId,omitempty"`
	Items     []NormalizeItemBody `json:"items"`
}

// NormalizeItemBody is one OCR'd line.
type NormalizeItemBody struct {
	RawText       string          `json:"rawText"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	OCRConfidence float64         `json:"ocrConfidence"`
	CategoryHint  string          `json:"categoryHint,omitempty"`
}

// NormalizeResponse returns one slot per submitted item, in input order.
type NormalizeResponse struct {
	Results []normalizer.BatchResult `json:"results"`
}

// normalizeBatch runs the pipeline over a batch of sibling line items.
func (r *Router) normalizeBatch(w http.ResponseWriter, req *http.Request) {
	var body NormalizeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Items) == 0 {
		respondError(w, http.StatusBadRequest, "No items to normalize")
		return
	}

	inputs := make([]normalizer.ItemInput, 0, len(body.Items))
	for _, it := range body.Items {
		inputs = append(inputs, normalizer.ItemInput{
			ReceiptID:     body.ReceiptID,
			RawText:       it.RawText,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
			OCRConfidence: it.OCRConfidence,
			CategoryHint:  it.CategoryHint,
			ShopID:        body.ShopID,
			UserID:        body.UserID,
		})
	}

	results := r.svc.NormalizeBatch(req.Context(), inputs)

	respondJSON(w, http.StatusOK, NormalizeResponse{Results: results})
}
