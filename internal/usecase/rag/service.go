package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// Service composes retrieval, prompt building, and answer generation.
type Service struct {
	retriever Retriever
	generator Generator
	logger    *zap.Logger
}

// New creates a RAG service.
func New(retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, generator: generator, logger: logger}
}

// Answer runs the full pipeline: retrieve, build the prompt, generate.
// Documents in the result are the exact ranked list the prompt was built from.
func (s *Service) Answer(ctx context.Context, question string, topK int) (domain.Answer, error) {
	results, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve documents: %w", err)
	}

	prompt := BuildPrompt(question, results)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Debug("Answer generated",
		zap.String("model", s.generator.Model()),
		zap.Int("documents", len(results)),
		zap.Int("prompt_chars", len(prompt)))

	return domain.Answer{
		Question:  question,
		Answer:    answer,
		Model:     s.generator.Model(),
		Documents: results,
	}, nil
}

// SearchOnly stops after retrieval, for inspection without language-model cost.
func (s *Service) SearchOnly(ctx context.Context, question string, topK int) ([]domain.SearchResult, error) {
	results, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve documents: %w", err)
	}
	return results, nil
}
