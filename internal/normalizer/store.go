package normalizer

import (
	"context"

	"github.com/google/uuid"
	"github.com/paragon-scan/paragongo/internal/models"
)

// Store is the persistence boundary of the pipeline. Every method is a
// short, independent operation; implementations must never hold a
// transaction open across a call back into the pipeline (the AI step in
// particular runs with no transaction open).
//
// UpsertAlias, ConfirmCandidate and IncrementCandidate must be atomic
// conflict-resolving writes, not read-then-write sequences: many receipts
// from many users can reference the same raw text concurrently.
type Store interface {
	// AliasesByText returns every alias row for the normalized text, with
	// Product (and its Category) preloaded.
	AliasesByText(ctx context.Context, normText string) ([]models.ProductAlias, error)
	// UpsertAlias inserts the (text, product) pairing with counter 1, or
	// atomically increments the existing counter and bumps last-seen.
	UpsertAlias(ctx context.Context, normText string, productID uint, shopID, userID *string) error

	// Products returns the canonical dictionary with categories preloaded.
	Products(ctx context.Context) ([]models.CanonicalProduct, error)
	// GetOrCreateProduct reuses a product with the same name
	// (case-insensitive) or creates it; never duplicates by name.
	GetOrCreateProduct(ctx context.Context, name string, categoryID uint) (*models.CanonicalProduct, error)

	Categories(ctx context.Context) ([]models.Category, error)
	// GetOrCreateCategory is idempotent and backed by a uniqueness
	// constraint on the normalized name.
	GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error)

	PendingCandidates(ctx context.Context) ([]models.ProductCandidate, error)
	// ConfirmCandidate records one confirmation for the normalized name,
	// creating the bucket lazily. Returns the row with its post-increment
	// counter.
	ConfirmCandidate(ctx context.Context, normName, representative string, categoryID *uint) (*models.ProductCandidate, error)
	// IncrementCandidate atomically bumps an existing bucket's counter and
	// returns the row with its post-increment counter.
	IncrementCandidate(ctx context.Context, id uint) (*models.ProductCandidate, error)
	// PromoteCandidate takes the guarded pending->approved transition and,
	// only when it wins, materializes the canonical product (get-or-create
	// by name) in the same transaction. A losing writer leaves no trace:
	// the product is returned non-nil only together with true.
	PromoteCandidate(ctx context.Context, id uint, name string, categoryID uint) (*models.CanonicalProduct, bool, error)

	LineItemByID(ctx context.Context, id uuid.UUID) (*models.LineItem, error)
	CreateLineItem(ctx context.Context, item *models.LineItem) error
	UpdateLineItem(ctx context.Context, item *models.LineItem) error
	// VerifiedUnresolvedItems returns verified line items that still have
	// no product identity.
	VerifiedUnresolvedItems(ctx context.Context) ([]models.LineItem, error)
	// AssignProductToItems bulk-backfills the product and category onto
	// the given line items.
	AssignProductToItems(ctx context.Context, ids []uuid.UUID, productID, categoryID uint) error
}
