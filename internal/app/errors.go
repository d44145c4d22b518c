package app

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrDimensionMismatch means the embedding service returned vectors of
	// a different dimension than the index was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDocumentNotFound  = errors.New("document not found")
)
