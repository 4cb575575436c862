package models

import (
	"time"
)

// Category is a node in the product category tree. Parent is optional;
// top-level categories have a nil ParentID.
type Category struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	NormalizedName string    `gorm:"not null;uniqueIndex" json:"-"`
	ParentID       *uint     `gorm:"index" json:"parentId,omitempty"`
	Parent         *Category `gorm:"foreignKey:ParentID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MaxCategoryDepth bounds parent-chain traversal when inserting categories.
const MaxCategoryDepth = 8

func (Category) TableName() string {
	return "categories"
}
