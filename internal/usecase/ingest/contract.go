package ingest

import (
	"context"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// Embedder vectorizes document texts in batches and reports its dimension.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	Dimension() int
}

// Index is the write-side contract for the vector index.
type Index interface {
	Reset(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []domain.IndexedPoint) error
	Stats(ctx context.Context) (domain.CollectionStats, error)
}
