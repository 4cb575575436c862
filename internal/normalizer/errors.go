package normalizer

import "errors"

var (
	// ErrEmptyText marks input that is empty after OCR cleanup. The line
	// item is still persisted with the fallback category.
	ErrEmptyText = errors.New("text is empty after cleaning")

	// ErrItemNotFound is returned by Store implementations when a line
	// item id does not exist.
	ErrItemNotFound = errors.New("line item not found")
)
