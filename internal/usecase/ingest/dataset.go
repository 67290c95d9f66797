package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// LoadDataset reads documents from a .json array file or a line-delimited
// .jsonl/.ndjson file. A missing file and an unsupported extension are
// distinct errors; malformed content fails the whole load.
func LoadDataset(path string) ([]domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".jsonl", ".ndjson":
	default:
		return nil, fmt.Errorf("dataset %s: extension %q: %w", path, ext, domain.ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dataset %s: %w", path, domain.ErrDatasetNotFound)
		}
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	if ext == ".json" {
		return loadArray(f, path)
	}
	return loadLines(f, path)
}

func loadArray(f *os.File, path string) ([]domain.Document, error) {
	var docs []domain.Document
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return docs, nil
}

func loadLines(f *os.File, path string) ([]domain.Document, error) {
	var docs []domain.Document

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("decode dataset %s line %d: %w", path, lineNo, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	return docs, nil
}
