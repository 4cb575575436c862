package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paragon-scan/paragongo/internal/buildinfo"
	"github.com/paragon-scan/paragongo/internal/middleware"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/normalizer"
	"github.com/paragon-scan/paragongo/internal/storage"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the persistence layer the HTTP surface reads and
// writes directly, next to the pipeline service. Lookups report a missing
// subject with storage.ErrNotFound.
type Store interface {
	CreateReceipt(ctx context.Context, shopID, userID *string) (*models.Receipt, error)
	ReceiptByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	Categories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string, parentID *uint) (*models.Category, error)
	Products(ctx context.Context) ([]models.CanonicalProduct, error)
	ProductByID(ctx context.Context, id uint) (*models.CanonicalProduct, error)
	AliasesForProduct(ctx context.Context, productID uint) ([]models.ProductAlias, error)
	Candidates(ctx context.Context, status string) ([]models.ProductCandidate, error)
}

var _ Store = (*storage.Store)(nil)

// Router wraps the mux router with the pipeline service and the store.
type Router struct {
	*mux.Router
	store Store
	svc   *normalizer.Service
	log   *logrus.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(store Store, svc *normalizer.Service, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.New()
	}
	r := &Router{
		Router: mux.NewRouter(),
		store:  store,
		svc:    svc,
		log:    log,
	}

	r.Use(middleware.RequestLogger(log))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Normalization pipeline
	api.HandleFunc("/receipts", r.createReceipt).Methods("POST")
	api.HandleFunc("/receipts/{id}", r.getReceipt).Methods("GET")
	api.HandleFunc("/normalize", r.normalizeBatch).Methods("POST")
	api.HandleFunc("/items/{id}/verify", r.verifyItem).Methods("POST")

	// Dictionary views
	api.HandleFunc("/categories", r.listCategories).Methods("GET")
	api.HandleFunc("/categories", r.createCategory).Methods("POST")
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products/{id}/aliases", r.listProductAliases).Methods("GET")
	api.HandleFunc("/candidates", r.listCandidates).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   buildinfo.Version,
		"commit":    buildinfo.CommitHash,
		"buildTime": buildinfo.BuildTime,
		"startedAt": buildinfo.StartTime,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
