package models

import (
	"time"
)

// ProductAlias links a normalized raw-text variant to a canonical product.
// One row exists per (normalized text, product) pair; the confirmation
// counter only ever grows. Shop/user scope is a priority hint for lookup
// ordering, never a hard filter.
type ProductAlias struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	NormalizedText    string            `gorm:"not null;uniqueIndex:idx_aliases_text_product" json:"normalizedText"`
	ProductID         uint              `gorm:"not null;uniqueIndex:idx_aliases_text_product" json:"productId"`
	Product           *CanonicalProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ConfirmationCount int               `gorm:"not null;default:1" json:"confirmationCount"`
	ShopID            *string           `gorm:"index" json:"shopId,omitempty"`
	UserID            *string           `gorm:"index" json:"userId,omitempty"`

	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

func (ProductAlias) TableName() string {
	return "product_aliases"
}
