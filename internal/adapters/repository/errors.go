package repository

import "errors"

// Sentinel kinds for audit store errors.
var (
	ErrNotFound          = errors.New("audit not found")
	ErrAlreadyExists     = errors.New("audit already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)
