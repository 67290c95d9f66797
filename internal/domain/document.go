package domain

import "encoding/json"

// KeyPrefix namespaces all Redis keys written by this service.
const KeyPrefix = "plantrag:"

// Document is one reference record from the source dataset. Immutable once
// ingested; the dataset file is the sole source of truth and is re-read in
// full on every ingestion run.
type Document struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Extra holds unknown top-level fields from the dataset record.
	// They pass through into the index payload unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownDocumentFields are the top-level keys consumed by Document itself;
// everything else lands in Extra.
var knownDocumentFields = map[string]struct{}{
	"id": {}, "type": {}, "source": {}, "title": {}, "content": {}, "metadata": {},
}

// UnmarshalJSON decodes the declared fields and captures unknown ones in Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownDocumentFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		d.Extra = raw
	}
	return nil
}

// SearchResult is a single retrieval hit: the matched document's payload plus
// its similarity score. Higher score means more relevant; for the cosine
// metric the score is 1 - distance, in [-1, 1].
type SearchResult struct {
	PointID  int64          `json:"point_id"`
	Score    float64        `json:"score"`
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Answer is the end-to-end question-answering result. Documents is the exact
// ranked list the prompt was built from, so callers can audit grounding.
type Answer struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Model     string         `json:"model"`
	Documents []SearchResult `json:"documents"`
}

// CollectionStats is read-only index introspection.
type CollectionStats struct {
	PointCount int `json:"point_count"`
	Dimension  int `json:"dimension"`
}
