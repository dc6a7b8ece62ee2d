package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/arturoeanton/code-atlas/internal/adapter/store"
	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	host      *fakeHost
	ai        *fakeAI
	store     *store.MemoryStore
	svc       *AnalysisService
	hostCalls int
	aiCalls   int
	gotKey    string
	gotModel  string
	gotToken  string
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{host: newFakeHost(), ai: &fakeAI{}}
	p.host.repo = &domain.Repository{
		Owner: "octocat", Name: "Hello-World", FullName: "octocat/Hello-World",
		URL: "https://github.com/octocat/Hello-World", DefaultBranch: "master", Topics: []string{},
	}
	p.host.addFile("README.md", "Hello World!")

	mem, err := store.NewMemoryStore(8)
	require.NoError(t, err)
	p.store = mem

	hosts := func(token string) port.RepoHost {
		p.hostCalls++
		p.gotToken = token
		return p.host
	}
	models := func(ctx context.Context, apiKey, model string) (port.AIProvider, error) {
		p.aiCalls++
		p.gotKey, p.gotModel = apiKey, model
		return p.ai, nil
	}
	p.svc = NewAnalysisService(hosts, models, TreeLimits{Workers: 2}, mem)
	return p
}

func TestAnalyze_EndToEnd(t *testing.T) {
	p := newPipeline(t)
	p.ai.on("expert software architect", `{"summary":"Greets the world","purpose":"demo","architecture":"Single file","techStack":["Markdown"]}`)
	p.ai.on("senior code reviewer", `{"overall":"good","score":75,"issues":[],"suggestions":["add code"]}`)
	p.ai.fallback = "```mermaid\ngraph TD\n  A --> B\n```"

	var stages []domain.AnalysisStage
	res, err := p.svc.Analyze(context.Background(), port.AnalyzeRequest{
		URL:         "https://github.com/octocat/Hello-World",
		APIKey:      "key",
		GitHubToken: "ghp",
		Model:       domain.ModelGemini20Flash,
	}, func(pr domain.AnalysisProgress) { stages = append(stages, pr.Stage) })
	require.NoError(t, err)

	assert.Equal(t, "octocat/Hello-World", res.Repo.FullName)
	assert.Equal(t, "Greets the world", res.Summary)
	assert.Equal(t, "Single file", res.Architecture)
	assert.Equal(t, []string{"Markdown"}, res.TechStack)
	assert.Equal(t, []domain.FileInsight{}, res.FileInsights)
	assert.Equal(t, []domain.ModuleInsight{}, res.Modules)
	assert.Empty(t, res.Degraded)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.CreatedAt.IsZero())
	require.NotNil(t, res.CodeHealth)
	assert.Equal(t, domain.HealthGood, res.CodeHealth.Overall)

	for _, kind := range domain.DiagramKinds {
		assert.Equal(t, "graph TD\n  A --> B", res.Diagrams.Get(kind), kind)
	}
	raw, err := json.Marshal(res.Diagrams)
	require.NoError(t, err)
	var keys map[string]string
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.Len(t, keys, 6)
	for _, k := range []string{"architecture", "hierarchy", "dataFlow", "classDiagram", "dependencyGraph", "mindmap"} {
		assert.Contains(t, keys, k)
	}

	// summary + six diagrams + code health, one model call each
	assert.Len(t, p.ai.prompts, 8)
	assert.Equal(t, []domain.AnalysisStage{
		domain.StageCloning, domain.StageAnalyzing, domain.StageGenerating, domain.StageDiagrams, domain.StageComplete,
	}, stages)
	assert.Equal(t, "key", p.gotKey)
	assert.Equal(t, domain.ModelGemini20Flash, p.gotModel)
	assert.Equal(t, "ghp", p.gotToken)
	assert.Equal(t, "", p.host.listed[0], "walk starts at the root")

	saved, err := p.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, saved.ID)
}

func TestAnalyze_DegradedPartsAreNamed(t *testing.T) {
	p := newPipeline(t)
	p.ai.fallback = "no structure at all"

	res, err := p.svc.Analyze(context.Background(), port.AnalyzeRequest{URL: "github.com/octocat/Hello-World", APIKey: "key"}, nil)
	require.NoError(t, err)

	assert.Contains(t, res.Degraded, "summary")
	assert.Contains(t, res.Degraded, "codeHealth")
	assert.Contains(t, res.Degraded, "diagram:mindmap")
	assert.Equal(t, PlaceholderDiagram, res.Diagrams.Get(domain.DiagramArchitecture))
	assert.Equal(t, "See summary", res.Architecture)
	assert.Equal(t, DefaultCodeHealth(), *res.CodeHealth)
}

func TestAnalyze_InputErrorsCallNothing(t *testing.T) {
	cases := []struct {
		name string
		req  port.AnalyzeRequest
		want error
	}{
		{"missing url", port.AnalyzeRequest{APIKey: "key"}, port.ErrMissingFields},
		{"missing key", port.AnalyzeRequest{URL: "https://github.com/a/b"}, port.ErrMissingFields},
		{"bad url", port.AnalyzeRequest{URL: "https://example.com/a/b", APIKey: "key"}, port.ErrInvalidRepoURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline(t)
			_, err := p.svc.Analyze(context.Background(), tc.req, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, p.hostCalls)
			assert.Zero(t, p.aiCalls)
		})
	}
}

func TestAnalyze_UpstreamFailuresAreAllOrNothing(t *testing.T) {
	t.Run("repository", func(t *testing.T) {
		p := newPipeline(t)
		p.host.repoErr = port.ErrRepoNotFound

		res, err := p.svc.Analyze(context.Background(), port.AnalyzeRequest{URL: "https://github.com/a/b", APIKey: "key"}, nil)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, port.ErrRepoNotFound)
		assert.Zero(t, p.aiCalls)
	})
	t.Run("model", func(t *testing.T) {
		p := newPipeline(t)
		p.ai.err = errBoom

		res, err := p.svc.Analyze(context.Background(), port.AnalyzeRequest{URL: "https://github.com/a/b", APIKey: "key"}, nil)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, errBoom)

		list, err := p.svc.List(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestExplainFile(t *testing.T) {
	p := newPipeline(t)
	p.ai.fallback = `{"summary":"Readme","explanation":"Greets","language":"Markdown","lines":1}`

	out, err := p.svc.ExplainFile(context.Background(), port.AnalyzeRequest{URL: "https://github.com/octocat/Hello-World", APIKey: "key"}, "README.md")
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Equal(t, "README.md", out.Value.Path)
	assert.Equal(t, "Markdown", out.Value.Language)

	_, err = p.svc.ExplainFile(context.Background(), port.AnalyzeRequest{URL: "https://github.com/octocat/Hello-World", APIKey: "key"}, "missing.go")
	assert.Error(t, err)
}

func TestAnalyzeModule(t *testing.T) {
	p := newPipeline(t)
	p.host.addDir("src")
	p.host.addFile("src/app.go", "package src")
	p.ai.fallback = `{"summary":"App code","purpose":"core","files":["src/app.go"]}`

	out, err := p.svc.AnalyzeModule(context.Background(), port.AnalyzeRequest{URL: "https://github.com/octocat/Hello-World", APIKey: "key"}, "/src/")
	require.NoError(t, err)
	assert.Equal(t, "src", out.Value.Path)
	assert.Equal(t, []string{"src/app.go"}, out.Value.Files)
	assert.Contains(t, p.ai.prompts[0], "src/app.go")
	assert.NotContains(t, p.ai.prompts[0], "README.md\n")
}
