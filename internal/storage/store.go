// Package storage is the PostgreSQL implementation of the pipeline's
// Store interface. Counter updates are single conflict-resolving
// statements and the promotion transition is a status-guarded conditional
// update, so concurrent writers can race on the same alias or candidate
// key without lost updates or duplicate rows.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/database"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/normalizer"
	"github.com/paragon-scan/paragongo/internal/textutil"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements normalizer.Store on GORM/PostgreSQL.
type Store struct {
	db  *database.DB
	log *logrus.Logger
}

// New creates a Store.
func New(db *database.DB, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{db: db, log: log}
}

var _ normalizer.Store = (*Store)(nil)

// AliasesByText returns every alias row for the normalized text with the
// product and its category preloaded.
func (s *Store) AliasesByText(ctx context.Context, normText string) ([]models.ProductAlias, error) {
	var aliases []models.ProductAlias
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Where("normalized_text = ?", normText).
		Find(&aliases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases for %q: %w", normText, err)
	}
	return aliases, nil
}

// UpsertAlias inserts the pairing with counter 1 or atomically increments
// the existing row. A single INSERT ... ON CONFLICT statement, never a
// read-then-write sequence.
func (s *Store) UpsertAlias(ctx context.Context, normText string, productID uint, shopID, userID *string) error {
	now := time.Now().UTC()
	alias := models.ProductAlias{
		NormalizedText:    normText,
		ProductID:         productID,
		ConfirmationCount: 1,
		ShopID:            shopID,
		UserID:            userID,
		FirstSeenAt:       now,
		LastSeenAt:        now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "normalized_text"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"confirmation_count": gorm.Expr("product_aliases.confirmation_count + 1"),
			"last_seen_at":       now,
		}),
	}).Create(&alias).Error
	if err != nil {
		return fmt.Errorf("failed to upsert alias %q: %w", normText, err)
	}
	return nil
}

// Products returns the canonical dictionary with categories preloaded.
func (s *Store) Products(ctx context.Context) ([]models.CanonicalProduct, error) {
	var products []models.CanonicalProduct
	if err := s.db.WithContext(ctx).Preload("Category").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return products, nil
}

// GetOrCreateProduct reuses a product with the same normalized name or
// creates it. The unique index on normalized_name backs the
// never-duplicate-by-name guarantee under concurrent creators.
func (s *Store) GetOrCreateProduct(ctx context.Context, name string, categoryID uint) (*models.CanonicalProduct, error) {
	return getOrCreateProduct(s.db.WithContext(ctx), name, categoryID)
}

func getOrCreateProduct(db *gorm.DB, name string, categoryID uint) (*models.CanonicalProduct, error) {
	norm := textutil.Normalize(name)

	var existing models.CanonicalProduct
	err := db.Where("normalized_name = ?", norm).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up product %q: %w", name, err)
	}

	product := models.CanonicalProduct{
		Name:           name,
		NormalizedName: norm,
		CategoryID:     categoryID,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_name"}},
		DoNothing: true,
	}).Create(&product).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create product %q: %w", name, err)
	}

	if product.ID == 0 {
		// A concurrent writer created it between lookup and insert.
		if err := db.Where("normalized_name = ?", norm).First(&product).Error; err != nil {
			return nil, fmt.Errorf("failed to re-load product %q: %w", name, err)
		}
	}
	return &product, nil
}

// Categories returns all categories.
func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categories, nil
}

// GetOrCreateCategory is the idempotent accessor behind both the
// permanent fallback category and accepted AI suggestions. Uniqueness is
// constraint-backed; there is no in-memory singleton.
func (s *Store) GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	norm := textutil.Normalize(name)
	if norm == "" {
		return nil, fmt.Errorf("category name is empty")
	}

	var existing models.Category
	err := s.db.WithContext(ctx).Where("normalized_name = ?", norm).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	category := models.Category{Name: name, NormalizedName: norm}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_name"}},
		DoNothing: true,
	}).Create(&category).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	if category.ID == 0 {
		if err := s.db.WithContext(ctx).Where("normalized_name = ?", norm).First(&category).Error; err != nil {
			return nil, fmt.Errorf("failed to re-load category %q: %w", name, err)
		}
	}
	return &category, nil
}

// CreateCategory inserts a category under an optional parent. The parent
// chain is walked with a bounded depth so a corrupted tree cannot hang
// the insert, and a cycle through the new node is impossible because the
// node does not exist yet while its ancestors are checked.
func (s *Store) CreateCategory(ctx context.Context, name string, parentID *uint) (*models.Category, error) {
	norm := textutil.Normalize(name)
	if norm == "" {
		return nil, fmt.Errorf("category name is empty")
	}

	if parentID != nil {
		depth := 0
		current := parentID
		for current != nil {
			depth++
			if depth > models.MaxCategoryDepth {
				return nil, fmt.Errorf("category parent chain exceeds depth %d", models.MaxCategoryDepth)
			}
			var parent models.Category
			if err := s.db.WithContext(ctx).First(&parent, *current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("parent category %d does not exist", *current)
				}
				return nil, err
			}
			current = parent.ParentID
		}
	}

	category := models.Category{Name: name, NormalizedName: norm, ParentID: parentID}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return &category, nil
}

// PendingCandidates returns all candidate buckets still awaiting promotion.
func (s *Store) PendingCandidates(ctx context.Context) ([]models.ProductCandidate, error) {
	var candidates []models.ProductCandidate
	err := s.db.WithContext(ctx).
		Where("status = ?", models.CandidateStatusPending).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending candidates: %w", err)
	}
	return candidates, nil
}

// ConfirmCandidate records one confirmation, creating the bucket lazily.
// The normalized-name unique index resolves concurrent first
// confirmations into a single row.
func (s *Store) ConfirmCandidate(ctx context.Context, normName, representative string, categoryID *uint) (*models.ProductCandidate, error) {
	now := time.Now().UTC()
	cand := models.ProductCandidate{
		NormalizedName:     normName,
		RepresentativeText: representative,
		ConfirmationCount:  1,
		ObservedCategoryID: categoryID,
		Status:             models.CandidateStatusPending,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "normalized_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"confirmation_count": gorm.Expr("product_candidates.confirmation_count + 1"),
			"updated_at":         now,
		}),
	}, clause.Returning{}).Create(&cand).Error
	if err != nil {
		return nil, fmt.Errorf("failed to confirm candidate %q: %w", normName, err)
	}
	return &cand, nil
}

// IncrementCandidate atomically bumps an existing bucket's counter,
// returning the row as it is after the increment.
func (s *Store) IncrementCandidate(ctx context.Context, id uint) (*models.ProductCandidate, error) {
	cand := models.ProductCandidate{ID: id}
	res := s.db.WithContext(ctx).
		Model(&cand).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		UpdateColumn("confirmation_count", gorm.Expr("confirmation_count + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment candidate %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("candidate %d does not exist", id)
	}
	return &cand, nil
}

// PromoteCandidate performs the guarded pending->approved transition and
// creates the canonical product in the same transaction. The WHERE clause
// on the current status makes the promotion at-most-once even when
// several confirmations cross the threshold simultaneously, and a losing
// writer rolls out without touching the dictionary.
func (s *Store) PromoteCandidate(ctx context.Context, id uint, name string, categoryID uint) (*models.CanonicalProduct, bool, error) {
	var product *models.CanonicalProduct
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ProductCandidate{}).
			Where("id = ? AND status = ?", id, models.CandidateStatusPending).
			Update("status", models.CandidateStatusApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		p, err := getOrCreateProduct(tx, name, categoryID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.ProductCandidate{}).
			Where("id = ?", id).
			Update("product_id", p.ID).Error; err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to promote candidate %d: %w", id, err)
	}
	return product, product != nil, nil
}

// LineItemByID loads one line item.
func (s *Store) LineItemByID(ctx context.Context, id uuid.UUID) (*models.LineItem, error) {
	var item models.LineItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, normalizer.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load line item %s: %w", id, err)
	}
	return &item, nil
}

// CreateLineItem persists a new line item.
func (s *Store) CreateLineItem(ctx context.Context, item *models.LineItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create line item: %w", err)
	}
	return nil
}

// UpdateLineItem saves the full row.
func (s *Store) UpdateLineItem(ctx context.Context, item *models.LineItem) error {
	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to update line item %s: %w", item.ID, err)
	}
	return nil
}

// VerifiedUnresolvedItems returns verified items with no product identity.
func (s *Store) VerifiedUnresolvedItems(ctx context.Context) ([]models.LineItem, error) {
	var items []models.LineItem
	err := s.db.WithContext(ctx).
		Where("verified = ? AND product_id IS NULL", true).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load verified unresolved items: %w", err)
	}
	return items, nil
}

// AssignProductToItems bulk-backfills a product onto historic items in a
// single statement. Runs separately from the promotion guard; a failure
// here is retryable without affecting dictionary correctness.
func (s *Store) AssignProductToItems(ctx context.Context, ids []uuid.UUID, productID, categoryID uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"product_id":  productID,
			"category_id": categoryID,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to backfill %d line items: %w", len(ids), err)
	}
	return nil
}
