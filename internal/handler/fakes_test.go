package handler

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/arturoeanton/code-atlas/internal/adapter/store"
	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/service"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream exploded")

type stubHost struct {
	err error
}

func (h *stubHost) GetRepo(ctx context.Context, owner, repo string) (*domain.Repository, error) {
	if h.err != nil {
		return nil, h.err
	}
	return &domain.Repository{
		Owner: owner, Name: repo, FullName: owner + "/" + repo,
		URL: "https://github.com/" + owner + "/" + repo, DefaultBranch: "master", Topics: []string{},
	}, nil
}

func (h *stubHost) ListDir(ctx context.Context, owner, repo, ref, path string) ([]domain.FileInfo, error) {
	if path != "" {
		return nil, nil
	}
	return []domain.FileInfo{{Path: "README.md", Name: "README.md", Type: domain.FileTypeFile, Size: 12}}, nil
}

func (h *stubHost) ReadFile(ctx context.Context, owner, repo, ref, path string) (string, error) {
	return "Hello World!", nil
}

type stubAI struct {
	mu      sync.Mutex
	reply   string
	chunks  []string
	failAt  int // yield an error after this many chunks; <0 never
	prompts []string
}

func (a *stubAI) ModelName() string { return "stub" }

func (a *stubAI) Generate(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts = append(a.prompts, prompt)
	return a.reply, nil
}

func (a *stubAI) GenerateStream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	a.mu.Unlock()
	return func(yield func(string, error) bool) {
		for i, c := range a.chunks {
			if i == a.failAt {
				yield("", errUpstream)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

type testEnv struct {
	app       *fiber.App
	host      *stubHost
	ai        *stubAI
	store     *store.MemoryStore
	modelArgs atomic.Value
	calls     atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		host: &stubHost{},
		ai:   &stubAI{reply: "```mermaid\ngraph TD\n  A --> B\n```", failAt: -1},
	}
	mem, err := store.NewMemoryStore(16)
	require.NoError(t, err)
	env.store = mem

	hosts := func(token string) port.RepoHost {
		env.calls.Add(1)
		return env.host
	}
	models := func(ctx context.Context, apiKey, model string) (port.AIProvider, error) {
		env.calls.Add(1)
		env.modelArgs.Store(apiKey + "|" + model)
		return env.ai, nil
	}

	svc := service.NewAnalysisService(hosts, models, service.TreeLimits{Workers: 2}, mem)
	tracker := NewJobTracker()

	env.app = fiber.New()
	api := env.app.Group("/api")
	NewAnalysisHandler(svc, tracker, 0).Register(api)
	NewJobsHandler(tracker).Register(api)
	NewChatHandler(models, domain.DefaultModel, 4).Register(api)
	NewAuditHandler(mem).Register(api)
	NewHealthHandler("CodeAtlas", "memory").Register(api)
	return env
}

func sseFrames(body string) []string {
	var out []string
	for _, f := range strings.Split(body, "\n\n") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
