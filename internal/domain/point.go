package domain

import "hash/fnv"

// IndexedPoint is one indexed unit: a stable integer id, the embedding
// vector, and the full source document as payload.
type IndexedPoint struct {
	ID       int64
	Vector   []float32
	Document Document
}

// PointID derives a stable point id from a document id via FNV-1a 64,
// masked to a non-negative int64. Deriving from content identity (not batch
// position) keeps a document on the same point across re-ingestion runs,
// even when the dataset is reordered; duplicate source ids overwrite the
// same point instead of multiplying.
func PointID(documentID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(documentID))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
