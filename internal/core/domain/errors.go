package domain

import "errors"

var (
	// ErrViewerNotFound is returned for unknown or expired viewer sessions.
	ErrViewerNotFound = errors.New("viewer not found")
	// ErrUnknownCategory is returned when a category name cannot be parsed.
	ErrUnknownCategory = errors.New("unknown category")
)
