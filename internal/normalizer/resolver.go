package normalizer

import (
	"github.com/paragon-scan/paragongo/internal/models"
)

// Alias scope tiers, best first. Scope never filters a lookup out; it
// only orders competing rows for the same text.
const (
	tierUserShop = iota
	tierShop
	tierGlobal
	tierOther
)

func aliasTier(a models.ProductAlias, shopID, userID string) int {
	shopMatch := shopID != "" && a.ShopID != nil && *a.ShopID == shopID
	userMatch := userID != "" && a.UserID != nil && *a.UserID == userID

	switch {
	case shopMatch && userMatch:
		return tierUserShop
	case shopMatch && a.UserID == nil:
		return tierShop
	case a.ShopID == nil && a.UserID == nil:
		return tierGlobal
	default:
		return tierOther
	}
}

// pickAlias selects the best alias for the given context: lowest tier
// wins, ties broken by highest confirmation count, then by lowest id so
// the choice is deterministic.
func pickAlias(aliases []models.ProductAlias, shopID, userID string) *models.ProductAlias {
	var best *models.ProductAlias
	bestTier := 0

	for i := range aliases {
		a := &aliases[i]
		tier := aliasTier(*a, shopID, userID)

		if best == nil {
			best, bestTier = a, tier
			continue
		}
		if tier < bestTier {
			best, bestTier = a, tier
			continue
		}
		if tier == bestTier {
			if a.ConfirmationCount > best.ConfirmationCount ||
				(a.ConfirmationCount == best.ConfirmationCount && a.ID < best.ID) {
				best = a
			}
		}
	}

	return best
}
