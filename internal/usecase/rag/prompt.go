package rag

import (
	"fmt"
	"strings"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

const promptHeader = "You are an expert on Arizona desert plants. " +
	"Answer the user's question based on the provided context from authoritative sources."

const promptInstructions = `Instructions:
- Provide a clear, detailed answer based on the context above
- If the context contains scientific names, include them
- If mentioning care instructions, be specific about Arizona conditions
- If the context doesn't fully answer the question, say so
- Cite which document(s) you're drawing from (e.g., "According to Document 1...")`

// BuildPrompt renders retrieved documents and the user question into a single
// generation prompt. One labeled block per result in rank order, scores with
// fixed 3-decimal formatting. Empty results still yield a well-formed prompt.
func BuildPrompt(query string, results []domain.SearchResult) string {
	var b strings.Builder

	b.WriteString(promptHeader)
	b.WriteString("\n\n")
	b.WriteString("Context from relevant documents:\n")

	for i, r := range results {
		fmt.Fprintf(&b, "Document %d (Score: %.3f):\n", i+1, r.Score)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Source: %s\n", r.Source)
		fmt.Fprintf(&b, "Content: %s\n", r.Content)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(promptInstructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "User Question: %s\n", query)
	b.WriteString("\nAnswer:")

	return b.String()
}
