package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/paragon-scan/paragongo/internal/storage"
)

// CreateCategoryRequest adds one category node, optionally under a parent.
type CreateCategoryRequest struct {
	Name     string `json:"name"`
	ParentID *uint  `json:"parentId,omitempty"`
}

func (r *Router) listCategories(w http.ResponseWriter, req *http.Request) {
	categories, err := r.store.Categories(req.Context())
	if err != nil {
		r.log.WithError(err).Error("Failed to list categories")
		respondError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (r *Router) createCategory(w http.ResponseWriter, req *http.Request) {
	var body CreateCategoryRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" {
		respondError(w, http.StatusBadRequest, "Category name is required")
		return
	}

	category, err := r.store.CreateCategory(req.Context(), body.Name, body.ParentID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	products, err := r.store.Products(req.Context())
	if err != nil {
		r.log.WithError(err).Error("Failed to list products")
		respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (r *Router) listProductAliases(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	if _, err := r.store.ProductByID(req.Context(), uint(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		r.log.WithError(err).Error("Failed to load product")
		respondError(w, http.StatusInternalServerError, "Failed to load product")
		return
	}

	aliases, err := r.store.AliasesForProduct(req.Context(), uint(id))
	if err != nil {
		r.log.WithError(err).Error("Failed to list aliases")
		respondError(w, http.StatusInternalServerError, "Failed to list aliases")
		return
	}
	respondJSON(w, http.StatusOK, aliases)
}

func (r *Router) listCandidates(w http.ResponseWriter, req *http.Request) {
	status := req.URL.Query().Get("status")
	candidates, err := r.store.Candidates(req.Context(), status)
	if err != nil {
		r.log.WithError(err).Error("Failed to list candidates")
		respondError(w, http.StatusInternalServerError, "Failed to list candidates")
		return
	}
	respondJSON(w, http.StatusOK, candidates)
}
