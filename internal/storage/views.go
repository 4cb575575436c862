package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/models"
	"gorm.io/gorm"
)

// Read-only accessors for the dictionary views exposed over HTTP. The
// reporting dashboard itself lives outside this service.

// ErrNotFound marks a lookup whose subject does not exist, as opposed to
// a failing database.
var ErrNotFound = errors.New("not found")

// CreateReceipt registers an owning context for a batch of line items.
func (s *Store) CreateReceipt(ctx context.Context, shopID, userID *string) (*models.Receipt, error) {
	receipt := models.Receipt{ShopID: shopID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(&receipt).Error; err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return &receipt, nil
}

// ReceiptByID loads a receipt with its items.
func (s *Store) ReceiptByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	err := s.db.WithContext(ctx).Preload("Items").First(&receipt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load receipt %s: %w", id, err)
	}
	return &receipt, nil
}

// ProductByID loads one product with its category.
func (s *Store) ProductByID(ctx context.Context, id uint) (*models.CanonicalProduct, error) {
	var product models.CanonicalProduct
	err := s.db.WithContext(ctx).Preload("Category").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return &product, nil
}

// AliasesForProduct lists the learned text variants of one product,
// most-confirmed first.
func (s *Store) AliasesForProduct(ctx context.Context, productID uint) ([]models.ProductAlias, error) {
	var aliases []models.ProductAlias
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("confirmation_count DESC").
		Find(&aliases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases for product %d: %w", productID, err)
	}
	return aliases, nil
}

// Candidates lists candidate buckets, optionally filtered by status.
func (s *Store) Candidates(ctx context.Context, status string) ([]models.ProductCandidate, error) {
	q := s.db.WithContext(ctx).Order("confirmation_count DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var candidates []models.ProductCandidate
	if err := q.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	return candidates, nil
}
