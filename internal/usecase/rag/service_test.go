package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

type mockRetriever struct {
	results []domain.SearchResult
	err     error
	gotTopK int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	m.gotTopK = topK
	return m.results, m.err
}

type mockGenerator struct {
	answer    string
	err       error
	gotPrompt string
	calls     int
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.gotPrompt = prompt
	return m.answer, m.err
}

func (m *mockGenerator) Model() string { return "test-model" }

func TestAnswer(t *testing.T) {
	docs := []domain.SearchResult{
		{PointID: 1, Score: 0.92, ID: "saguaro-1", Title: "Saguaro", Source: "field_guide", Content: "Carnegiea gigantea tolerates extreme heat."},
	}
	retriever := &mockRetriever{results: docs}
	generator := &mockGenerator{answer: "Saguaros are highly drought tolerant."}
	svc := New(retriever, generator, zap.NewNop())

	answer, err := svc.Answer(context.Background(), "drought tolerant cactus", 1)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if answer.Question != "drought tolerant cactus" {
		t.Errorf("Question = %q", answer.Question)
	}
	if answer.Answer != "Saguaros are highly drought tolerant." {
		t.Errorf("Answer = %q", answer.Answer)
	}
	if answer.Model != "test-model" {
		t.Errorf("Model = %q", answer.Model)
	}
	if len(answer.Documents) != 1 || answer.Documents[0].Title != "Saguaro" {
		t.Errorf("Documents = %+v, expected the retrieved list", answer.Documents)
	}
	if retriever.gotTopK != 1 {
		t.Errorf("retriever topK = %d, expected 1", retriever.gotTopK)
	}
	if !strings.Contains(generator.gotPrompt, "Title: Saguaro") {
		t.Error("generator prompt should contain the retrieved document")
	}
	if !strings.Contains(generator.gotPrompt, "User Question: drought tolerant cactus") {
		t.Error("generator prompt should contain the question")
	}
}

func TestAnswer_RetrieveError(t *testing.T) {
	retriever := &mockRetriever{err: domain.ErrInvalidQuery}
	generator := &mockGenerator{}
	svc := New(retriever, generator, zap.NewNop())

	_, err := svc.Answer(context.Background(), "ab", 5)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if generator.calls != 0 {
		t.Error("generator must not be called when retrieval fails")
	}
}

func TestAnswer_GenerationError(t *testing.T) {
	retriever := &mockRetriever{results: []domain.SearchResult{{PointID: 1, Score: 0.8, Title: "Saguaro"}}}
	generator := &mockGenerator{err: domain.ErrGenerationFailed}
	svc := New(retriever, generator, zap.NewNop())

	_, err := svc.Answer(context.Background(), "drought tolerant cactus", 5)
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestAnswer_EmptyRetrievalStillGenerates(t *testing.T) {
	retriever := &mockRetriever{results: nil}
	generator := &mockGenerator{answer: "I don't have enough context to answer that."}
	svc := New(retriever, generator, zap.NewNop())

	answer, err := svc.Answer(context.Background(), "rare alpine ferns", 5)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer.Answer == "" {
		t.Error("expected non-empty answer")
	}
	if len(answer.Documents) != 0 {
		t.Errorf("expected no documents, got %d", len(answer.Documents))
	}
	if generator.calls != 1 {
		t.Errorf("expected generation even with empty context, calls = %d", generator.calls)
	}
}

func TestSearchOnly_DoesNotGenerate(t *testing.T) {
	docs := []domain.SearchResult{{PointID: 1, Score: 0.9, Title: "Saguaro"}}
	retriever := &mockRetriever{results: docs}
	generator := &mockGenerator{}
	svc := New(retriever, generator, zap.NewNop())

	results, err := svc.SearchOnly(context.Background(), "drought tolerant cactus", 3)
	if err != nil {
		t.Fatalf("SearchOnly failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Saguaro" {
		t.Errorf("unexpected results: %+v", results)
	}
	if generator.calls != 0 {
		t.Error("SearchOnly must not invoke the generator")
	}
}
