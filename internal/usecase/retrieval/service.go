package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

const (
	// MinQueryLen is the minimum query length in characters after trimming whitespace.
	MinQueryLen = 3
	// MaxTopK caps how many documents one query may retrieve.
	MaxTopK = 10
	// DefaultTopK is used when the caller does not specify top_k.
	DefaultTopK = 5
)

// Service embeds a query and retrieves the closest documents.
type Service struct {
	embed Embedder
	index Index
}

// New creates a retrieval service.
func New(embed Embedder, index Index) *Service {
	return &Service{embed: embed, index: index}
}

// Retrieve validates the query, embeds it once, and returns up to topK hits
// ranked by similarity. topK above MaxTopK is clamped, not rejected.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLen {
		return nil, fmt.Errorf("query must be at least %d characters: %w", MinQueryLen, domain.ErrInvalidQuery)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidTopK)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Search(ctx, embResult.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	return results, nil
}
