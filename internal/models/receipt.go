package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Receipt is the owning context for a batch of line items. The receipt
// image and its OCR pass live outside this service; only the scoping
// context is stored here.
type Receipt struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopID *string   `gorm:"index" json:"shopId,omitempty"`
	UserID *string   `gorm:"index" json:"userId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	Items []LineItem `gorm:"foreignKey:ReceiptID" json:"items,omitempty"`
}

func (Receipt) TableName() string {
	return "receipts"
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
