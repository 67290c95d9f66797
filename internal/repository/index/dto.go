package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sonoran-cloud/plantrag/internal/db"
	"github.com/sonoran-cloud/plantrag/internal/domain"
)

const (
	vectorField = "__vector"
	scoreField  = "__vector_score"
)

// pointToHash converts an indexed point to a flat hash for HSET.
// The vector is stored as little-endian float32 bytes in the "__vector" field.
func pointToHash(p domain.IndexedPoint) (map[string]string, error) {
	if len(p.Vector) == 0 {
		return nil, fmt.Errorf("point %d has no vector", p.ID)
	}

	fields := map[string]string{
		"id":        p.Document.ID,
		"type":      p.Document.Type,
		"source":    p.Document.Source,
		"title":     p.Document.Title,
		"content":   p.Document.Content,
		vectorField: string(vectorToBytes(p.Vector)),
	}

	if len(p.Document.Metadata) > 0 {
		data, err := json.Marshal(p.Document.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		fields["metadata"] = string(data)
	}

	if len(p.Document.Extra) > 0 {
		data, err := json.Marshal(p.Document.Extra)
		if err != nil {
			return nil, fmt.Errorf("marshal extra fields: %w", err)
		}
		fields["extra"] = string(data)
	}

	return fields, nil
}

// resultFromEntry hydrates a search hit from an FT.SEARCH entry.
// Unknown dataset fields stored under "extra" are folded back into Metadata.
func resultFromEntry(entry db.SearchEntry, prefix string) (domain.SearchResult, error) {
	idStr := strings.TrimPrefix(entry.Key, prefix)
	pointID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("invalid point key %q: %w", entry.Key, err)
	}

	res := domain.SearchResult{
		PointID: pointID,
		Score:   entry.Score,
		ID:      entry.Fields["id"],
		Type:    entry.Fields["type"],
		Source:  entry.Fields["source"],
		Title:   entry.Fields["title"],
		Content: entry.Fields["content"],
	}

	if raw := entry.Fields["metadata"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &res.Metadata); err != nil {
			return domain.SearchResult{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	if raw := entry.Fields["extra"]; raw != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return domain.SearchResult{}, fmt.Errorf("unmarshal extra fields: %w", err)
		}
		if res.Metadata == nil {
			res.Metadata = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			if _, taken := res.Metadata[k]; !taken {
				res.Metadata[k] = v
			}
		}
	}

	return res, nil
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
