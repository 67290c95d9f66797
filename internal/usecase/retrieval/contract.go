package retrieval

import (
	"context"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index runs KNN search over the vector index.
type Index interface {
	Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
}
