package util

import "errors"

// Sentinel errors shared across packages
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLocked indicates another process holds the archive lock
	ErrLocked = errors.New("archive root locked by another process")
)
