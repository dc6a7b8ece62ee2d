package port

import (
	"context"

	"github.com/arturoeanton/code-atlas/internal/domain"
)

// Outcome is the result of a best-effort call. A degraded outcome carries a
// fallback Value and the Reason the real one could not be produced.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// OK wraps a genuine value.
func OK[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

// Fallback wraps a default value used in place of a failed result.
func Fallback[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Degraded: true, Reason: reason}
}

// AnalyzeRequest is the input of one analysis run.
type AnalyzeRequest struct {
	URL         string `json:"url"`
	APIKey      string `json:"apiKey"`
	GitHubToken string `json:"githubToken,omitempty"`
	Model       string `json:"model,omitempty"`
}

// ProgressFunc receives stage updates while an analysis runs.
type ProgressFunc func(domain.AnalysisProgress)

// AnalysisStore persists completed analyses.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *domain.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error)
}

// AuditStore persists and lists request audit records.
type AuditStore interface {
	WriteAudit(action, resource, resourceID, details, ip, userAgent string) error
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}

// StatePersister saves and loads serialized client state under a key.
type StatePersister interface {
	SaveState(ctx context.Context, key string, data []byte) error
	LoadState(ctx context.Context, key string) ([]byte, error)
}
