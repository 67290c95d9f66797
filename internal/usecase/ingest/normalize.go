package ingest

import (
	"unicode/utf8"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// DefaultMaxEmbedChars bounds the content length sent to the embedding model.
const DefaultMaxEmbedChars = 5000

// NormalizeText builds the embeddable text for a document: title, a blank
// line, then content. Content longer than maxChars is cut to a deterministic
// prefix; the title always survives in full so the strongest semantic signal
// is never lost. The budget counts characters, not bytes, so multibyte
// content is never cut mid-rune.
func NormalizeText(doc domain.Document, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxEmbedChars
	}

	content := doc.Content
	if utf8.RuneCountInString(content) > maxChars {
		content = string([]rune(content)[:maxChars])
	}

	return doc.Title + "\n\n" + content
}
