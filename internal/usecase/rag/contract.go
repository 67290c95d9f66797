package rag

import (
	"context"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// Retriever returns ranked documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Generator produces an answer from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}
