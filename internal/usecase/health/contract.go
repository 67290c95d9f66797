package health

import (
	"context"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexReader reads collection stats for readiness reporting.
type IndexReader interface {
	Stats(ctx context.Context) (domain.CollectionStats, error)
}
