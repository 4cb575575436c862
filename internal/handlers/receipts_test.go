package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore drives the HTTP handlers without a database. Only the
// methods a test configures return data; the rest are zero-valued.
type fakeStore struct {
	receipt    *models.Receipt
	receiptErr error
	product    *models.CanonicalProduct
	productErr error
}

func (f *fakeStore) CreateReceipt(ctx context.Context, shopID, userID *string) (*models.Receipt, error) {
	return &models.Receipt{ID: uuid.New(), ShopID: shopID, UserID: userID}, nil
}

func (f *fakeStore) ReceiptByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	return f.receipt, f.receiptErr
}

func (f *fakeStore) Categories(ctx context.Context) ([]models.Category, error) {
	return nil, nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, name string, parentID *uint) (*models.Category, error) {
	return &models.Category{ID: 1, Name: name, ParentID: parentID}, nil
}

func (f *fakeStore) Products(ctx context.Context) ([]models.CanonicalProduct, error) {
	return nil, nil
}

func (f *fakeStore) ProductByID(ctx context.Context, id uint) (*models.CanonicalProduct, error) {
	return f.product, f.productErr
}

func (f *fakeStore) AliasesForProduct(ctx context.Context, productID uint) ([]models.ProductAlias, error) {
	return nil, nil
}

func (f *fakeStore) Candidates(ctx context.Context, status string) ([]models.ProductCandidate, error) {
	return nil, nil
}

func testRouter(store Store) *Router {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewRouter(store, nil, log)
}

func TestGetReceiptNotFound(t *testing.T) {
	router := testRouter(&fakeStore{
		receiptErr: fmt.Errorf("receipt %s: %w", uuid.New(), storage.ErrNotFound),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReceiptStoreFailureIsNotA404(t *testing.T) {
	router := testRouter(&fakeStore{
		receiptErr: fmt.Errorf("connection refused"),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetReceiptInvalidID(t *testing.T) {
	router := testRouter(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReceiptOK(t *testing.T) {
	id := uuid.New()
	router := testRouter(&fakeStore{receipt: &models.Receipt{ID: id}})

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())
}

func TestListProductAliasesStoreFailureIsNotA404(t *testing.T) {
	router := testRouter(&fakeStore{
		productErr: fmt.Errorf("connection refused"),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/products/7/aliases", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListProductAliasesUnknownProduct(t *testing.T) {
	router := testRouter(&fakeStore{
		productErr: fmt.Errorf("product 7: %w", storage.ErrNotFound),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/products/7/aliases", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
