package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/google/uuid"
)

// AnalysisService runs the analysis pipeline: repository snapshot, content
// summary, summary generation, six diagrams and code health, strictly in order.
type AnalysisService struct {
	hosts  port.RepoHostFactory
	models port.AIFactory
	limits TreeLimits
	store  port.AnalysisStore
	now    func() time.Time
}

// NewAnalysisService creates the orchestrator. store may be nil.
func NewAnalysisService(hosts port.RepoHostFactory, models port.AIFactory, limits TreeLimits, store port.AnalysisStore) *AnalysisService {
	return &AnalysisService{
		hosts:  hosts,
		models: models,
		limits: limits,
		store:  store,
		now:    time.Now,
	}
}

// ValidateRequest checks required fields and the URL shape without touching
// any external service.
func ValidateRequest(req port.AnalyzeRequest) (owner, repo string, err error) {
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.APIKey) == "" {
		return "", "", port.ErrMissingFields
	}
	return ParseGitHubURL(req.URL)
}

// Analyze runs one analysis. Input errors wrap port.ErrMissingFields or
// port.ErrInvalidRepoURL; anything else is an upstream failure and no
// partial result is returned.
func (s *AnalysisService) Analyze(ctx context.Context, req port.AnalyzeRequest, progress port.ProgressFunc) (*domain.Analysis, error) {
	owner, name, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}
	report := func(stage domain.AnalysisStage) {
		if progress != nil {
			progress(domain.ProgressFor(stage))
		}
	}

	slog.Info("analysis started", "repo", owner+"/"+name, "model", req.Model)
	start := time.Now()

	report(domain.StageCloning)
	repos := NewRepoService(s.hosts(req.GitHubToken), s.limits)
	info, err := repos.GetRepoInfo(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetch repository %s/%s: %w", owner, name, err)
	}

	report(domain.StageAnalyzing)
	content, tree := repos.GetRepoContentSummary(ctx, owner, name, info.DefaultBranch)

	report(domain.StageGenerating)
	model, err := s.models(ctx, req.APIKey, req.Model)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}
	ai := NewAIService(model)

	var degraded []string
	summary, err := ai.GenerateSummary(ctx, content)
	if err != nil {
		return nil, err
	}
	if summary.Degraded {
		degraded = append(degraded, "summary")
	}

	report(domain.StageDiagrams)
	var diagrams domain.Diagrams
	for _, kind := range domain.DiagramKinds {
		d, err := ai.GenerateDiagram(ctx, kind, content)
		if err != nil {
			return nil, err
		}
		if d.Degraded {
			degraded = append(degraded, "diagram:"+string(kind))
		}
		diagrams.Set(kind, d.Value)
	}

	health, err := ai.AnalyzeCodeHealth(ctx, content)
	if err != nil {
		return nil, err
	}
	if health.Degraded {
		degraded = append(degraded, "codeHealth")
	}

	result := &domain.Analysis{
		ID:           uuid.NewString(),
		Repo:         *info,
		Summary:      summary.Value.Summary,
		Architecture: summary.Value.Architecture,
		TechStack:    summary.Value.TechStack,
		Diagrams:     diagrams,
		FileInsights: []domain.FileInsight{},
		Modules:      []domain.ModuleInsight{},
		CodeHealth:   &health.Value,
		Tree:         tree,
		Degraded:     degraded,
		CreatedAt:    s.now().UTC(),
	}
	report(domain.StageComplete)

	slog.Info("analysis complete",
		"repo", info.FullName,
		"id", result.ID,
		"files", len(tree),
		"degraded", len(degraded),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, result); err != nil {
			slog.Error("failed to save analysis", "id", result.ID, "error", err)
		}
	}
	return result, nil
}

// Get returns a stored analysis.
func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	if s.store == nil {
		return nil, port.ErrAnalysisNotFound
	}
	return s.store.GetAnalysis(ctx, id)
}

// List returns the most recent stored analyses, newest first.
func (s *AnalysisService) List(ctx context.Context, limit int) ([]domain.Analysis, error) {
	if s.store == nil {
		return []domain.Analysis{}, nil
	}
	return s.store.ListAnalyses(ctx, limit)
}

// ExplainFile fetches one file and asks the model to explain it.
func (s *AnalysisService) ExplainFile(ctx context.Context, req port.AnalyzeRequest, path string) (port.Outcome[domain.FileInsight], error) {
	ai, repos, owner, name, branch, err := s.prepare(ctx, req)
	if err != nil {
		return port.Outcome[domain.FileInsight]{}, err
	}
	content := repos.GetFileContent(ctx, owner, name, branch, path)
	if content.Degraded {
		return port.Outcome[domain.FileInsight]{}, fmt.Errorf("read %s: %s", path, content.Reason)
	}
	return ai.ExplainFile(ctx, content.Value, path)
}

// AnalyzeModule summarizes the files directly under a directory and asks the
// model to describe the module.
func (s *AnalysisService) AnalyzeModule(ctx context.Context, req port.AnalyzeRequest, dir string) (port.Outcome[domain.ModuleInsight], error) {
	ai, repos, owner, name, branch, err := s.prepare(ctx, req)
	if err != nil {
		return port.Outcome[domain.ModuleInsight]{}, err
	}
	dir = strings.Trim(dir, "/")
	tree := repos.GetFileTree(ctx, owner, name, branch)

	var sb strings.Builder
	sb.WriteString("Files:\n")
	prefix := dir + "/"
	for _, f := range tree {
		if dir == "" || strings.HasPrefix(f.Path, prefix) {
			sb.WriteString(f.Path + "\n")
		}
	}
	return ai.AnalyzeModule(ctx, sb.String(), dir)
}

func (s *AnalysisService) prepare(ctx context.Context, req port.AnalyzeRequest) (*AIService, *RepoService, string, string, string, error) {
	owner, name, err := ValidateRequest(req)
	if err != nil {
		return nil, nil, "", "", "", err
	}
	repos := NewRepoService(s.hosts(req.GitHubToken), s.limits)
	info, err := repos.GetRepoInfo(ctx, owner, name)
	if err != nil {
		return nil, nil, "", "", "", fmt.Errorf("fetch repository %s/%s: %w", owner, name, err)
	}
	model, err := s.models(ctx, req.APIKey, req.Model)
	if err != nil {
		return nil, nil, "", "", "", fmt.Errorf("init model: %w", err)
	}
	return NewAIService(model), repos, owner, name, info.DefaultBranch, nil
}
