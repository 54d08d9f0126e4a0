package repositories

import "errors"

// Store-level sentinel errors. Implementations wrap them with %w.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)
