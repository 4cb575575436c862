package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification source tags.
const (
	VerificationAutomatic = "automatic"
	VerificationUser      = "user"
	VerificationAdmin     = "admin"
)

// LineItem is one OCR'd receipt line. Price and quantity data is always
// persisted, even when identity resolution fails; ProductID stays nil for
// unresolved items and gets backfilled on candidate promotion.
type LineItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID *uuid.UUID `gorm:"type:uuid;index" json:"receiptId,omitempty"`

	RawText       string          `gorm:"not null" json:"rawText"`
	CleanText     string          `gorm:"not null;index" json:"cleanText"`
	Quantity      decimal.Decimal `gorm:"type:numeric(12,3)" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2)" json:"unitPrice"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(12,2)" json:"totalPrice"`
	OCRConfidence float64         `json:"ocrConfidence"`
	CategoryHint  *string         `json:"categoryHint,omitempty"`
	ShopID        *string         `gorm:"index" json:"shopId,omitempty"`
	UserID        *string         `gorm:"index" json:"userId,omitempty"`

	ProductID       *uint             `gorm:"index" json:"productId,omitempty"`
	Product         *CanonicalProduct `gorm:"foreignKey:ProductID" json:"-"`
	CategoryID      *uint             `json:"categoryId,omitempty"`
	Category        *Category         `gorm:"foreignKey:CategoryID" json:"-"`
	MatchMethod     string            `json:"matchMethod"`
	MatchConfidence float64           `json:"matchConfidence"`

	Verified           bool           `gorm:"not null;default:false;index" json:"verified"`
	VerificationSource string         `json:"verificationSource,omitempty"`
	AITrace            datatypes.JSON `gorm:"type:jsonb" json:"aiTrace,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (LineItem) TableName() string {
	return "line_items"
}

func (li *LineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}
