package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sonoran-cloud/plantrag/internal/domain"
	healthuc "github.com/sonoran-cloud/plantrag/internal/usecase/health"
	"github.com/sonoran-cloud/plantrag/internal/usecase/retrieval"
)

// errorCode values returned in the error response body.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeNotFound          errorCode = "collection_not_found"
	codeEmbeddingProvider errorCode = "embedding_provider_error"
	codeGenerationFailed  errorCode = "generation_failed"
	codeInternalError     errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Answerer is the question-answering contract consumed by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int) (domain.Answer, error)
	SearchOnly(ctx context.Context, question string, topK int) ([]domain.SearchResult, error)
}

// StatsReader exposes read-only index statistics.
type StatsReader interface {
	Stats(ctx context.Context) (domain.CollectionStats, error)
}

// Server is the HTTP API over the RAG pipeline.
type Server struct {
	rag           Answerer
	stats         StatsReader
	health        *healthuc.Service
	collection    string
	snippetChars  int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. snippetChars bounds result content
// length in responses; 0 disables truncation.
func NewServer(
	rag Answerer,
	stats StatsReader,
	health *healthuc.Service,
	collection string,
	snippetChars int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		rag:          rag,
		stats:        stats,
		health:       health,
		collection:   collection,
		snippetChars: snippetChars,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidTopK, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/query", s.Query)
	r.Post("/search", s.Search)
	r.Get("/stats", s.Stats)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type questionRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

type resultItem struct {
	Score    float64        `json:"score"`
	ID       string         `json:"id"`
	Type     string         `json:"type,omitempty"`
	Source   string         `json:"source,omitempty"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type answerResponse struct {
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	Model     string       `json:"model"`
	Documents []resultItem `json:"documents"`
}

type searchResponse struct {
	Question string       `json:"question"`
	Results  []resultItem `json:"results"`
	Count    int          `json:"count"`
}

type statsResponse struct {
	Collection string `json:"collection"`
	PointCount int    `json:"point_count"`
	Dimension  int    `json:"dimension"`
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Query handles POST /query: full retrieve-and-generate pipeline.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	question, topK, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	answer, err := s.rag.Answer(r.Context(), question, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Question:  answer.Question,
		Answer:    answer.Answer,
		Model:     answer.Model,
		Documents: s.resultItems(answer.Documents),
	})
}

// Search handles POST /search: retrieval only, no language-model cost.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	question, topK, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	results, err := s.rag.SearchOnly(r.Context(), question, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := s.resultItems(results)
	writeJSON(w, http.StatusOK, searchResponse{
		Question: question,
		Results:  items,
		Count:    len(items),
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Collection: s.collection,
		PointCount: stats.PointCount,
		Dimension:  stats.Dimension,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":      report.Status,
		"checks":      report.Checks,
		"point_count": report.PointCount,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeQuestion parses and validates the shared question/top_k request body.
func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return "", 0, false
	}

	question := strings.TrimSpace(req.Question)
	if utf8.RuneCountInString(question) < retrieval.MinQueryLen {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"question must be at least 3 characters")
		return "", 0, false
	}

	topK := retrieval.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 1 || topK > retrieval.MaxTopK {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"top_k must be between 1 and 10")
		return "", 0, false
	}

	return question, topK, true
}

func (s *Server) resultItems(results []domain.SearchResult) []resultItem {
	items := make([]resultItem, len(results))
	for i, r := range results {
		content := r.Content
		if s.snippetChars > 0 && utf8.RuneCountInString(content) > s.snippetChars {
			content = string([]rune(content)[:s.snippetChars])
		}
		items[i] = resultItem{
			Score:    r.Score,
			ID:       r.ID,
			Type:     r.Type,
			Source:   r.Source,
			Title:    r.Title,
			Content:  content,
			Metadata: r.Metadata,
		}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrCollectionNotFound,
		domain.ErrInvalidQuery,
		domain.ErrInvalidTopK,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
