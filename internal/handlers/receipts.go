package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paragon-scan/paragongo/internal/storage"
)

// CreateReceiptRequest registers the owning context for a batch of items.
type CreateReceiptRequest struct {
	ShopID string `json:"shopId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

func (r *Router) createReceipt(w http.ResponseWriter, req *http.Request) {
	var body CreateReceiptRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := r.store.CreateReceipt(req.Context(), optional(body.ShopID), optional(body.UserID))
	if err != nil {
		r.log.WithError(err).Error("Failed to create receipt")
		respondError(w, http.StatusInternalServerError, "Failed to create receipt")
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

func (r *Router) getReceipt(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid receipt id")
		return
	}

	receipt, err := r.store.ReceiptByID(req.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		r.log.WithError(err).Error("Failed to load receipt")
		respondError(w, http.StatusInternalServerError, "Failed to load receipt")
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
