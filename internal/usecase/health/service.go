package health

import (
	"context"
	"errors"

	"github.com/sonoran-cloud/plantrag/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckEmpty indicates the collection exists but holds no points yet.
	CheckEmpty CheckResult = "empty"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	Checks     map[string]CheckResult
	PointCount int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	index     IndexReader
}

// New creates a Service. embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker, index IndexReader) *Service {
	return &Service{db: db, embedding: embedding, index: index}
}

// Check runs health checks against all components. A not-yet-ingested
// collection degrades the status but is reported distinctly from an outage.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	pointCount := 0

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	stats, err := s.index.Stats(ctx)
	switch {
	case errors.Is(err, domain.ErrCollectionNotFound):
		checks["index"] = CheckEmpty
	case err != nil:
		checks["index"] = CheckError
	case stats.PointCount == 0:
		checks["index"] = CheckEmpty
	default:
		checks["index"] = CheckOK
		pointCount = stats.PointCount
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, PointCount: pointCount}
}
