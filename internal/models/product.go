package models

import (
	"time"
)

// CanonicalProduct is a single deduplicated product identity in the
// dictionary. Identity is immutable once created; name uniqueness is
// case-insensitive and enforced through NormalizedName.
type CanonicalProduct struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	NormalizedName string    `gorm:"not null;uniqueIndex" json:"-"`
	CategoryID     uint      `gorm:"not null;index" json:"categoryId"`
	Category       *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (CanonicalProduct) TableName() string {
	return "canonical_products"
}
