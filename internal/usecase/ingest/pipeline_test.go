package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

type mockEmbedder struct {
	dim        int
	batchSizes []int
	err        error
	vectorFor  func(text string) []float32
}

func (m *mockEmbedder) Dimension() int { return m.dim }

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if m.vectorFor != nil {
			embeddings[i] = m.vectorFor(text)
		} else {
			vec := make([]float32, m.dim)
			vec[0] = float32(len(text))
			embeddings[i] = vec
		}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockIndex struct {
	resetDim    int
	resetCalls  int
	resetErr    error
	upserted    [][]domain.IndexedPoint
	upsertCalls int
	upsertErr   error
	failOnBatch int // 1-based upsert batch that returns upsertErr; 0 fails the first
	statsFn     func() (domain.CollectionStats, error)
	pointsTotal map[int64]struct{}
}

func (m *mockIndex) Reset(_ context.Context, dim int) error {
	m.resetCalls++
	m.resetDim = dim
	m.pointsTotal = make(map[int64]struct{})
	return m.resetErr
}

func (m *mockIndex) Upsert(_ context.Context, points []domain.IndexedPoint) error {
	m.upsertCalls++
	if m.upsertErr != nil && (m.failOnBatch == 0 || m.upsertCalls == m.failOnBatch) {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, points)
	for _, p := range points {
		m.pointsTotal[p.ID] = struct{}{}
	}
	return nil
}

func (m *mockIndex) Stats(_ context.Context) (domain.CollectionStats, error) {
	if m.statsFn != nil {
		return m.statsFn()
	}
	return domain.CollectionStats{PointCount: len(m.pointsTotal), Dimension: m.resetDim}, nil
}

func datasetOf(t *testing.T, n int) string {
	t.Helper()
	content := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			content += ","
		}
		content += fmt.Sprintf(`{"id":"doc-%d","type":"species_profile","source":"s","title":"Plant %d","content":"content %d"}`, i, i, i)
	}
	content += "]"
	return writeDataset(t, "plants.json", content)
}

func TestRun(t *testing.T) {
	embed := &mockEmbedder{dim: 4}
	index := &mockIndex{}
	p := New(embed, index, Config{EmbedBatchSize: 32, UpsertBatchSize: 100}, zap.NewNop())

	count, err := p.Run(context.Background(), datasetOf(t, 5))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if count != 5 {
		t.Errorf("count = %d, expected 5", count)
	}
	if index.resetCalls != 1 || index.resetDim != 4 {
		t.Errorf("reset calls=%d dim=%d", index.resetCalls, index.resetDim)
	}
	if len(index.upserted) != 1 || len(index.upserted[0]) != 5 {
		t.Fatalf("unexpected upsert batches: %d", len(index.upserted))
	}
	for _, pt := range index.upserted[0] {
		if pt.ID < 0 {
			t.Errorf("point id %d must be non-negative", pt.ID)
		}
		if len(pt.Vector) != 4 {
			t.Errorf("point vector length = %d", len(pt.Vector))
		}
	}
}

func TestRun_PointIDStableAcrossReorder(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{}
	p := New(embed, index, Config{}, zap.NewNop())

	forward := writeDataset(t, "fwd.json",
		`[{"id":"p1","title":"A","content":"a"},{"id":"p2","title":"B","content":"b"}]`)
	reversed := writeDataset(t, "rev.json",
		`[{"id":"p2","title":"B","content":"b"},{"id":"p1","title":"A","content":"a"}]`)

	if _, err := p.Run(context.Background(), forward); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	idsByDoc := make(map[string]int64)
	for _, pt := range index.upserted[0] {
		idsByDoc[pt.Document.ID] = pt.ID
	}

	index.upserted = nil
	if _, err := p.Run(context.Background(), reversed); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	for _, pt := range index.upserted[0] {
		if idsByDoc[pt.Document.ID] != pt.ID {
			t.Errorf("document %s changed point id across reorder: %d vs %d",
				pt.Document.ID, idsByDoc[pt.Document.ID], pt.ID)
		}
	}
}

func TestRun_EmbedBatching(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{}
	p := New(embed, index, Config{EmbedBatchSize: 2, UpsertBatchSize: 100}, zap.NewNop())

	if _, err := p.Run(context.Background(), datasetOf(t, 5)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []int{2, 2, 1}
	if len(embed.batchSizes) != len(want) {
		t.Fatalf("batch sizes = %v, expected %v", embed.batchSizes, want)
	}
	for i := range want {
		if embed.batchSizes[i] != want[i] {
			t.Errorf("batch %d size = %d, expected %d", i, embed.batchSizes[i], want[i])
		}
	}
}

func TestRun_UpsertBatching(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{}
	p := New(embed, index, Config{EmbedBatchSize: 32, UpsertBatchSize: 2}, zap.NewNop())

	if _, err := p.Run(context.Background(), datasetOf(t, 5)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(index.upserted) != 3 {
		t.Fatalf("expected 3 upsert batches, got %d", len(index.upserted))
	}
	total := 0
	for _, batch := range index.upserted {
		total += len(batch)
	}
	if total != 5 {
		t.Errorf("total upserted = %d, expected 5", total)
	}
}

func TestRun_DimensionMismatch(t *testing.T) {
	embed := &mockEmbedder{
		dim:       4,
		vectorFor: func(string) []float32 { return []float32{0.1, 0.2} }, // wrong length
	}
	index := &mockIndex{}
	p := New(embed, index, Config{}, zap.NewNop())

	_, err := p.Run(context.Background(), datasetOf(t, 1))
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRun_CountMismatchIsFatal(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{
		statsFn: func() (domain.CollectionStats, error) {
			return domain.CollectionStats{PointCount: 1, Dimension: 2}, nil
		},
	}
	p := New(embed, index, Config{}, zap.NewNop())

	_, err := p.Run(context.Background(), datasetOf(t, 3))
	if !errors.Is(err, domain.ErrIngestIncomplete) {
		t.Fatalf("expected ErrIngestIncomplete, got %v", err)
	}
}

func TestRun_CountMismatchResetsCollection(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{}
	// Report one point fewer than stored, as if an upsert was lost.
	index.statsFn = func() (domain.CollectionStats, error) {
		return domain.CollectionStats{PointCount: len(index.pointsTotal) - 1, Dimension: 2}, nil
	}
	p := New(embed, index, Config{}, zap.NewNop())

	_, err := p.Run(context.Background(), datasetOf(t, 2))
	if !errors.Is(err, domain.ErrIngestIncomplete) {
		t.Fatalf("expected ErrIngestIncomplete, got %v", err)
	}
	if index.resetCalls != 2 {
		t.Errorf("reset calls = %d, expected the collection reset again after the failure", index.resetCalls)
	}
	if len(index.pointsTotal) != 0 {
		t.Errorf("collection holds %d points after a failed run, must be empty", len(index.pointsTotal))
	}
}

func TestRun_UpsertErrorResetsCollection(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{upsertErr: errors.New("connection reset"), failOnBatch: 2}
	p := New(embed, index, Config{UpsertBatchSize: 1}, zap.NewNop())

	_, err := p.Run(context.Background(), datasetOf(t, 3))
	if err == nil {
		t.Fatal("expected upsert error")
	}
	if index.resetCalls != 2 {
		t.Errorf("reset calls = %d, expected the collection reset again after the failure", index.resetCalls)
	}
	if len(index.pointsTotal) != 0 {
		t.Errorf("collection holds %d points after a failed run, must be empty", len(index.pointsTotal))
	}
}

func TestRun_DuplicateIDsCollapse(t *testing.T) {
	embed := &mockEmbedder{dim: 2}
	index := &mockIndex{}
	p := New(embed, index, Config{}, zap.NewNop())

	path := writeDataset(t, "dup.json",
		`[{"id":"p1","title":"A","content":"a"},{"id":"p1","title":"A2","content":"a2"},{"id":"p2","title":"B","content":"b"}]`)

	count, err := p.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, expected 2 distinct points", count)
	}
}

func TestRun_EmbedError(t *testing.T) {
	embed := &mockEmbedder{dim: 2, err: domain.ErrEmbeddingProviderError}
	index := &mockIndex{}
	p := New(embed, index, Config{}, zap.NewNop())

	_, err := p.Run(context.Background(), datasetOf(t, 1))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	// collection was reset before the failure; nothing was upserted
	if index.resetCalls != 1 || len(index.upserted) != 0 {
		t.Errorf("expected reset but no upserts, reset=%d upserts=%d", index.resetCalls, len(index.upserted))
	}
}

func TestRun_DatasetMissing(t *testing.T) {
	p := New(&mockEmbedder{dim: 2}, &mockIndex{}, Config{}, zap.NewNop())

	_, err := p.Run(context.Background(), t.TempDir()+"/absent.json")
	if !errors.Is(err, domain.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}
