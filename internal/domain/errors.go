package domain

import "errors"

var (
	// ErrCollectionNotFound signals a missing vector collection — the index
	// has not been built yet, as opposed to the store being unreachable.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDatasetNotFound signals a missing dataset file.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrUnsupportedFormat signals a dataset file with an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrDimensionMismatch signals an embedding dimension that does not match
	// the collection's configured dimension. Fatal configuration error.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIngestIncomplete signals a document/point count mismatch after
	// ingestion. The collection stays in its post-reset state.
	ErrIngestIncomplete = errors.New("ingestion incomplete")

	// ErrInvalidQuery signals an empty or too-short query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidTopK signals a non-positive top_k.
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a language-model completion failure.
	// Never surfaced as an empty answer.
	ErrGenerationFailed = errors.New("answer generation failed")
)
