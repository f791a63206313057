package store

import "errors"

var (
	ErrNotFound             = errors.New("entity not found")
	ErrDuplicateSlug        = errors.New("duplicate project slug")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
