package models

import (
	"time"
)

// Candidate status values. Transitions are one-way:
// pending -> approved (promotion) or pending -> rejected (admin action).
const (
	CandidateStatusPending  = "pending"
	CandidateStatusApproved = "approved"
	CandidateStatusRejected = "rejected"
)

// ProductCandidate is a pending identity bucket accumulating confirmations
// for an unresolved, user-verified text. When the confirmation counter
// crosses the acceptance threshold the candidate is promoted exactly once
// into a CanonicalProduct.
type ProductCandidate struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	NormalizedName     string            `gorm:"not null;uniqueIndex" json:"normalizedName"`
	RepresentativeText string            `gorm:"not null" json:"representativeText"`
	ConfirmationCount  int               `gorm:"not null;default:1" json:"confirmationCount"`
	ObservedCategoryID *uint             `json:"observedCategoryId,omitempty"`
	ObservedCategory   *Category         `gorm:"foreignKey:ObservedCategoryID" json:"-"`
	Status             string            `gorm:"not null;default:pending;index" json:"status"`
	ProductID          *uint             `json:"productId,omitempty"`
	Product            *CanonicalProduct `gorm:"foreignKey:ProductID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ProductCandidate) TableName() string {
	return "product_candidates"
}
