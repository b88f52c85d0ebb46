package storage

import "errors"

var (
	ErrStoreUnreachable  = errors.New("vector store unreachable")
	ErrCollectionMissing = errors.New("collection not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrLengthMismatch    = errors.New("point fields have unequal lengths")
	ErrDuplicateID       = errors.New("duplicate point id")
	ErrNoEncoder         = errors.New("no text encoder configured")
)
