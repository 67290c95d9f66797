package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// Defaults for batch sizing; boundaries carry no semantic meaning.
const (
	DefaultEmbedBatchSize  = 32
	DefaultUpsertBatchSize = 100
)

// Config tunes the ingestion pipeline.
type Config struct {
	MaxEmbedChars   int
	EmbedBatchSize  int
	UpsertBatchSize int
}

// Pipeline rebuilds the vector index from a dataset file. A full-rebuild
// operation: the collection is reset first, and any step failure aborts the
// run leaving the collection in its post-reset state.
type Pipeline struct {
	embed  Embedder
	index  Index
	cfg    Config
	logger *zap.Logger
}

// New creates an ingestion pipeline.
func New(embed Embedder, index Index, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.MaxEmbedChars <= 0 {
		cfg.MaxEmbedChars = DefaultMaxEmbedChars
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = DefaultUpsertBatchSize
	}
	return &Pipeline{embed: embed, index: index, cfg: cfg, logger: logger}
}

// Run executes the full rebuild: load, normalize, reset, embed, upsert,
// verify. Returns the final indexed point count.
func (p *Pipeline) Run(ctx context.Context, datasetPath string) (int, error) {
	docs, err := LoadDataset(datasetPath)
	if err != nil {
		return 0, err
	}
	p.logger.Info("Dataset loaded", zap.String("path", datasetPath), zap.Int("documents", len(docs)))

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = NormalizeText(doc, p.cfg.MaxEmbedChars)
	}

	dim := p.embed.Dimension()
	if dim <= 0 {
		return 0, fmt.Errorf("embedding provider reports dimension %d: %w", dim, domain.ErrDimensionMismatch)
	}

	if err := p.index.Reset(ctx, dim); err != nil {
		return 0, fmt.Errorf("reset collection: %w", err)
	}
	p.logger.Info("Collection reset", zap.Int("dimension", dim))

	vectors, err := p.embedAll(ctx, texts, dim)
	if err != nil {
		return 0, err
	}

	points := make([]domain.IndexedPoint, len(docs))
	for i, doc := range docs {
		points[i] = domain.IndexedPoint{
			ID:       domain.PointID(doc.ID),
			Vector:   vectors[i],
			Document: doc,
		}
	}

	if err := p.upsertAll(ctx, points); err != nil {
		p.rollback(ctx, dim)
		return 0, err
	}

	// Duplicate document ids collapse into one point; verify against the
	// distinct id count, not the raw document count.
	distinct := distinctPointCount(points)

	stats, err := p.index.Stats(ctx)
	if err != nil {
		p.rollback(ctx, dim)
		return 0, fmt.Errorf("read collection stats: %w", err)
	}
	if stats.PointCount != distinct {
		p.rollback(ctx, dim)
		return 0, fmt.Errorf("indexed %d points for %d distinct documents: %w",
			stats.PointCount, distinct, domain.ErrIngestIncomplete)
	}

	p.logger.Info("Ingestion complete",
		zap.Int("documents", len(docs)),
		zap.Int("points", stats.PointCount))

	return stats.PointCount, nil
}

// embedAll batch-embeds all texts preserving order and validates every
// vector against the provider's declared dimension.
func (p *Pipeline) embedAll(ctx context.Context, texts []string, dim int) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		result, err := p.embed.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(result.Embeddings) != end-start {
			return nil, fmt.Errorf("embed batch [%d:%d]: got %d vectors: %w",
				start, end, len(result.Embeddings), domain.ErrEmbeddingProviderError)
		}
		for i, vec := range result.Embeddings {
			if len(vec) != dim {
				return nil, fmt.Errorf("document %d: vector dimension %d, collection %d: %w",
					start+i, len(vec), dim, domain.ErrDimensionMismatch)
			}
		}

		vectors = append(vectors, result.Embeddings...)
	}

	return vectors, nil
}

func (p *Pipeline) upsertAll(ctx context.Context, points []domain.IndexedPoint) error {
	for start := 0; start < len(points); start += p.cfg.UpsertBatchSize {
		end := start + p.cfg.UpsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := p.index.Upsert(ctx, points[start:end]); err != nil {
			return fmt.Errorf("upsert batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// rollback re-resets the collection after a failure once upserts have
// begun, so a partially populated index never serves queries. Best
// effort: the caller still sees the original error.
func (p *Pipeline) rollback(ctx context.Context, dim int) {
	if err := p.index.Reset(ctx, dim); err != nil {
		p.logger.Error("Failed to reset collection after aborted ingestion", zap.Error(err))
	}
}

func distinctPointCount(points []domain.IndexedPoint) int {
	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		seen[p.ID] = struct{}{}
	}
	return len(seen)
}
