package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paragon-scan/paragongo/internal/normalizer"
)

// VerifyRequest carries a human verification or correction of one item.
type VerifyRequest struct {
	CorrectedText     string `json:"correctedText"`
	CorrectedCategory string `json:"correctedCategory,omitempty"`
}

// verifyItem re-resolves the corrected text and, on a continued miss,
// routes it into the candidate workflow.
func (r *Router) verifyItem(w http.ResponseWriter, req *http.Request) {
	idStr := mux.Vars(req)["id"]
	itemID, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid line item id")
		return
	}

	var body VerifyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := r.svc.VerifyItem(req.Context(), itemID, body.CorrectedText, body.CorrectedCategory)
	if err != nil {
		switch {
		case errors.Is(err, normalizer.ErrItemNotFound):
			respondError(w, http.StatusNotFound, "Line item not found")
		case errors.Is(err, normalizer.ErrEmptyText):
			respondError(w, http.StatusBadRequest, "Corrected text is empty")
		default:
			r.log.WithError(err).Error("Verification failed")
			respondError(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}
