package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sonoran-cloud/plantrag/internal/db"
	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// store is the consumer interface for the vector index (ISP).
//
//nolint:interfacebloat // index repo needs hash + index management + search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is the single-collection vector index over Redis hashes + FT.SEARCH.
type Repo struct {
	store      store
	collection string
	hnsw       HNSWConfig
}

// New creates an index repository bound to one collection name.
func New(s store, collection string) *Repo {
	return &Repo{store: s, collection: collection, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Reset drops and recreates the collection: FT.DROPINDEX (missing index is
// fine), delete all stale point hashes, rewrite the metadata hash, FT.CREATE.
// Idempotent: after Reset the collection exists and holds zero points.
func (r *Repo) Reset(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dim)
	}

	idx := indexName(r.collection)

	if err := r.store.DropIndex(ctx, idx); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", idx, err)
	}

	keys, err := r.store.Scan(ctx, pointPrefix(r.collection)+"*")
	if err != nil {
		return fmt.Errorf("scan points %s: %w", r.collection, err)
	}
	if len(keys) > 0 {
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete stale points %s: %w", r.collection, err)
		}
	}

	meta := map[string]string{
		"name":       r.collection,
		"vector_dim": strconv.Itoa(dim),
		"created_at": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if err := r.store.HSet(ctx, metaKey(r.collection), meta); err != nil {
		return fmt.Errorf("hset collection meta %s: %w", r.collection, err)
	}

	def, err := db.NewIndex(idx).
		Prefix(pointPrefix(r.collection)).
		Tag("type").
		VectorHNSW(vectorField, dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", idx, err)
	}

	return nil
}

// Upsert writes points as hashes in a single pipelined batch. Points with
// equal ids overwrite each other (last write wins).
func (r *Repo) Upsert(ctx context.Context, points []domain.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(points))
	for _, p := range points {
		fields, err := pointToHash(p)
		if err != nil {
			return fmt.Errorf("encode point %d: %w", p.ID, err)
		}
		items = append(items, db.HashSetItem{
			Key:    pointKey(r.collection, p.ID),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs a KNN query and returns up to topK hits ordered by descending
// score, ties broken by ascending point id.
func (r *Repo) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d: %w", topK, domain.ErrInvalidTopK)
	}

	q := &db.KNNQuery{
		IndexName:    indexName(r.collection),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"id", "type", "source", "title", "content", "metadata", "extra", scoreField},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("collection %s: %w", r.collection, domain.ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("search knn %s: %w", r.collection, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return []domain.SearchResult{}, nil
	}

	prefix := pointPrefix(r.collection)
	results := make([]domain.SearchResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		res, err := resultFromEntry(entry, prefix)
		if err != nil {
			return nil, fmt.Errorf("parse search entry %s: %w", entry.Key, err)
		}
		results = append(results, res)
	}

	// FT.SEARCH does not guarantee tie order; make it deterministic.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})

	return results, nil
}

// Stats reads the collection metadata and counts indexed points.
func (r *Repo) Stats(ctx context.Context) (domain.CollectionStats, error) {
	meta, err := r.store.HGetAll(ctx, metaKey(r.collection))
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("hgetall collection meta %s: %w", r.collection, err)
	}
	if len(meta) == 0 {
		return domain.CollectionStats{}, fmt.Errorf("collection %s: %w", r.collection, domain.ErrCollectionNotFound)
	}

	dim, err := strconv.Atoi(meta["vector_dim"])
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("invalid vector_dim %q: %w", meta["vector_dim"], err)
	}

	count, err := r.store.SearchCount(ctx, indexName(r.collection), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return domain.CollectionStats{}, fmt.Errorf("collection %s: %w", r.collection, domain.ErrCollectionNotFound)
		}
		return domain.CollectionStats{}, fmt.Errorf("count points %s: %w", r.collection, err)
	}

	return domain.CollectionStats{PointCount: count, Dimension: dim}, nil
}

// Redis key patterns: plantrag:collection:{name}, plantrag:{name}:idx, plantrag:{name}:{id}

func metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", domain.KeyPrefix, name)
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

func pointPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}

func pointKey(name string, id int64) string {
	return pointPrefix(name) + strconv.FormatInt(id, 10)
}
