// Package ai talks to the external categorization service. It is only
// consulted when neither the alias dictionary nor fuzzy matching resolved
// a product, and it must never be called while a database transaction is
// open.
package ai

import (
	"context"
	"fmt"
	"time"
)

// Request carries everything the categorization service may use to
// propose a category for an unresolved line item text.
type Request struct {
	Text         string
	CategoryHint string
	ShopID       string
	// Categories is the closed list of valid category names. A proposal
	// outside this list is discarded by the caller.
	Categories []string
}

// Suggestion is the structured response of the categorization service.
// Category is empty when the service declined to propose one.
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Categorizer proposes a category for an unresolved text. Implementations
// interact with an external AI service; a nil Categorizer in the pipeline
// simply disables the AI step.
type Categorizer interface {
	SuggestCategory(ctx context.Context, req Request) (*Suggestion, error)
}

// ServiceError wraps a failure of the external service and records
// whether it is worth retrying.
type ServiceError struct {
	Err       error
	Transient bool
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ai service error (transient=%v): %v", e.Transient, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// RetryConfig controls backoff for transient service failures.
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the retry configuration used when none is supplied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}
