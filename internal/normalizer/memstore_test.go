package normalizer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/textutil"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with the same atomicity contracts as the
// database implementation, so the pipeline can be exercised without
// Postgres. Every method takes the mutex for its whole duration, which
// matches the per-statement atomicity of the real upserts.
type memStore struct {
	mu sync.Mutex

	nextID     uint
	aliases    []models.ProductAlias
	products   []models.CanonicalProduct
	categories []models.Category
	candidates []models.ProductCandidate
	items      map[uuid.UUID]*models.LineItem

	// promotions counts successful guarded pending->approved transitions.
	promotions int

	// failCreateFor makes CreateLineItem fail for a given raw text.
	failCreateFor string
}

func newMemStore() *memStore {
	return &memStore{items: make(map[uuid.UUID]*models.LineItem)}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) categoryByID(id uint) *models.Category {
	for i := range m.categories {
		if m.categories[i].ID == id {
			c := m.categories[i]
			return &c
		}
	}
	return nil
}

func (m *memStore) productByID(id uint) *models.CanonicalProduct {
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			p.Category = m.categoryByID(p.CategoryID)
			return &p
		}
	}
	return nil
}

func (m *memStore) AliasesByText(ctx context.Context, normText string) ([]models.ProductAlias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ProductAlias
	for _, a := range m.aliases {
		if a.NormalizedText == normText {
			a.Product = m.productByID(a.ProductID)
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpsertAlias(ctx context.Context, normText string, productID uint, shopID, userID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.aliases {
		if m.aliases[i].NormalizedText == normText && m.aliases[i].ProductID == productID {
			m.aliases[i].ConfirmationCount++
			m.aliases[i].LastSeenAt = time.Now()
			return nil
		}
	}
	now := time.Now()
	m.aliases = append(m.aliases, models.ProductAlias{
		ID:                m.id(),
		NormalizedText:    normText,
		ProductID:         productID,
		ConfirmationCount: 1,
		ShopID:            shopID,
		UserID:            userID,
		FirstSeenAt:       now,
		LastSeenAt:        now,
	})
	return nil
}

func (m *memStore) Products(ctx context.Context) ([]models.CanonicalProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.CanonicalProduct, len(m.products))
	for i, p := range m.products {
		p.Category = m.categoryByID(p.CategoryID)
		out[i] = p
	}
	return out, nil
}

func (m *memStore) GetOrCreateProduct(ctx context.Context, name string, categoryID uint) (*models.CanonicalProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateProductLocked(name, categoryID), nil
}

func (m *memStore) getOrCreateProductLocked(name string, categoryID uint) *models.CanonicalProduct {
	norm := textutil.Normalize(name)
	for _, p := range m.products {
		if p.NormalizedName == norm {
			found := p
			found.Category = m.categoryByID(found.CategoryID)
			return &found
		}
	}
	p := models.CanonicalProduct{
		ID:             m.id(),
		Name:           name,
		NormalizedName: norm,
		CategoryID:     categoryID,
		CreatedAt:      time.Now(),
	}
	m.products = append(m.products, p)
	p.Category = m.categoryByID(categoryID)
	return &p
}

func (m *memStore) Categories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

func (m *memStore) GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	norm := textutil.Normalize(name)
	for _, c := range m.categories {
		if c.NormalizedName == norm {
			found := c
			return &found, nil
		}
	}
	c := models.Category{
		ID:             m.id(),
		Name:           name,
		NormalizedName: norm,
		CreatedAt:      time.Now(),
	}
	m.categories = append(m.categories, c)
	return &c, nil
}

func (m *memStore) PendingCandidates(ctx context.Context) ([]models.ProductCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ProductCandidate
	for _, c := range m.candidates {
		if c.Status == models.CandidateStatusPending {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ConfirmCandidate(ctx context.Context, normName, representative string, categoryID *uint) (*models.ProductCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.candidates {
		if m.candidates[i].NormalizedName == normName {
			m.candidates[i].ConfirmationCount++
			c := m.candidates[i]
			return &c, nil
		}
	}
	c := models.ProductCandidate{
		ID:                 m.id(),
		NormalizedName:     normName,
		RepresentativeText: representative,
		ConfirmationCount:  1,
		ObservedCategoryID: categoryID,
		Status:             models.CandidateStatusPending,
	}
	m.candidates = append(m.candidates, c)
	return &c, nil
}

func (m *memStore) IncrementCandidate(ctx context.Context, id uint) (*models.ProductCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.candidates {
		if m.candidates[i].ID == id {
			m.candidates[i].ConfirmationCount++
			c := m.candidates[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("candidate %d not found", id)
}

func (m *memStore) PromoteCandidate(ctx context.Context, id uint, name string, categoryID uint) (*models.CanonicalProduct, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.candidates {
		if m.candidates[i].ID == id && m.candidates[i].Status == models.CandidateStatusPending {
			product := m.getOrCreateProductLocked(name, categoryID)
			m.candidates[i].Status = models.CandidateStatusApproved
			m.candidates[i].ProductID = &product.ID
			m.promotions++
			return product, true, nil
		}
	}
	return nil, false, nil
}

func (m *memStore) LineItemByID(ctx context.Context, id uuid.UUID) (*models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memStore) CreateLineItem(ctx context.Context, item *models.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreateFor != "" && item.RawText == m.failCreateFor {
		return fmt.Errorf("simulated write failure")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memStore) UpdateLineItem(ctx context.Context, item *models.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *memStore) VerifiedUnresolvedItems(ctx context.Context) ([]models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.LineItem
	for _, item := range m.items {
		if item.Verified && item.ProductID == nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *memStore) AssignProductToItems(ctx context.Context, ids []uuid.UUID, productID, categoryID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			item.ProductID = &productID
			item.CategoryID = &categoryID
		}
	}
	return nil
}

func (m *memStore) aliasFor(normText string, productID uint) *models.ProductAlias {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.aliases {
		if m.aliases[i].NormalizedText == normText && m.aliases[i].ProductID == productID {
			a := m.aliases[i]
			return &a
		}
	}
	return nil
}

func (m *memStore) candidateByName(normName string) *models.ProductCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.candidates {
		if m.candidates[i].NormalizedName == normName {
			c := m.candidates[i]
			return &c
		}
	}
	return nil
}

var _ Store = (*memStore)(nil)

// Seeding helpers shared by the pipeline tests.

func mustCategory(t *testing.T, store *memStore, name string) *models.Category {
	t.Helper()
	cat, err := store.GetOrCreateCategory(context.Background(), name)
	require.NoError(t, err)
	return cat
}

func mustProduct(t *testing.T, store *memStore, name string, categoryID uint) *models.CanonicalProduct {
	t.Helper()
	p, err := store.GetOrCreateProduct(context.Background(), name, categoryID)
	require.NoError(t, err)
	return p
}

func mustAlias(t *testing.T, store *memStore, text string, productID uint) {
	t.Helper()
	require.NoError(t, store.UpsertAlias(context.Background(), textutil.Normalize(text), productID, nil, nil))
}
