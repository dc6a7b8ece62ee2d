package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"golang.org/x/sync/semaphore"
)

// MaxFileSize is the largest file kept in the tree, in bytes.
const MaxFileSize = 500 * 1024

// KeyFileExcerptChars caps each key file excerpt in the content summary.
const KeyFileExcerptChars = 5000

// SummaryHeader is the first line of every content summary.
const SummaryHeader = "Repository Structure:"

var skipDirs = map[string]bool{
	"node_modules": true, ".git": true, "dist": true, "build": true, ".next": true,
	"coverage": true, "__pycache__": true, "vendor": true, "target": true, ".venv": true,
}

var skipFiles = map[string]bool{
	".DS_Store": true, "Thumbs.db": true, ".env.local": true, ".env.development": true,
}

// KeyFiles are excerpted into the content summary, in this order.
var KeyFiles = []string{"README.md", "package.json", "requirements.txt", "pyproject.toml", "Cargo.toml", "go.mod"}

// TreeLimits bounds the file tree walk. Zero values mean unlimited, except
// Workers which defaults to 1.
type TreeLimits struct {
	MaxDepth int // directory levels below the root that are listed
	MaxNodes int // total entries kept
	Workers  int // concurrent directory listings
}

// RepoService reads repository metadata and content from a RepoHost.
type RepoService struct {
	host   port.RepoHost
	limits TreeLimits
}

// NewRepoService creates a repository service over host.
func NewRepoService(host port.RepoHost, limits TreeLimits) *RepoService {
	if limits.Workers <= 0 {
		limits.Workers = 1
	}
	return &RepoService{host: host, limits: limits}
}

// GetRepoInfo fetches the repository snapshot. Host errors are returned as-is.
func (s *RepoService) GetRepoInfo(ctx context.Context, owner, repo string) (*domain.Repository, error) {
	return s.host.GetRepo(ctx, owner, repo)
}

// GetFileTree walks the repository depth-first from the root. Sibling
// subtrees are listed concurrently but the result keeps depth-first order:
// each directory precedes its children, siblings keep host order.
// A subtree whose listing fails is logged and treated as empty.
func (s *RepoService) GetFileTree(ctx context.Context, owner, repo, branch string) []domain.FileInfo {
	w := &treeWalker{
		host:   s.host,
		owner:  owner,
		repo:   repo,
		ref:    branch,
		limits: s.limits,
		sem:    semaphore.NewWeighted(int64(s.limits.Workers)),
	}
	tree := w.walk(ctx, "", 0)
	if w.truncated.Load() {
		slog.Warn("file tree truncated", "repo", owner+"/"+repo, "max_nodes", s.limits.MaxNodes, "kept", len(tree))
	}
	return tree
}

type treeWalker struct {
	host   port.RepoHost
	owner  string
	repo   string
	ref    string
	limits TreeLimits
	sem    *semaphore.Weighted

	nodes     atomic.Int64
	truncated atomic.Bool
}

// take reserves one slot of the node budget.
func (w *treeWalker) take() bool {
	if w.limits.MaxNodes <= 0 {
		return true
	}
	if w.nodes.Add(1) > int64(w.limits.MaxNodes) {
		w.truncated.Store(true)
		return false
	}
	return true
}

func (w *treeWalker) list(ctx context.Context, path string) ([]domain.FileInfo, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer w.sem.Release(1)
	return w.host.ListDir(ctx, w.owner, w.repo, w.ref, path)
}

func (w *treeWalker) walk(ctx context.Context, path string, level int) []domain.FileInfo {
	entries, err := w.list(ctx, path)
	if err != nil {
		slog.Error("error fetching tree", "repo", w.owner+"/"+w.repo, "path", path, "error", err)
		return nil
	}

	parts := make([][]domain.FileInfo, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		switch e.Type {
		case domain.FileTypeDirectory:
			if skipDirs[e.Name] || !w.take() {
				continue
			}
			parts[i] = []domain.FileInfo{e}
			if w.limits.MaxDepth > 0 && level+1 > w.limits.MaxDepth {
				continue
			}
			wg.Add(1)
			go func(i int, dir string) {
				defer wg.Done()
				parts[i] = append(parts[i], w.walk(ctx, dir, level+1)...)
			}(i, e.Path)
		case domain.FileTypeFile:
			if skipFiles[e.Name] || e.Size > MaxFileSize || !w.take() {
				continue
			}
			parts[i] = []domain.FileInfo{e}
		}
	}
	wg.Wait()

	var out []domain.FileInfo
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// GetFileContent returns the decoded file content. Failures degrade to an
// empty string so one unreadable file never aborts an analysis.
func (s *RepoService) GetFileContent(ctx context.Context, owner, repo, branch, path string) port.Outcome[string] {
	content, err := s.host.ReadFile(ctx, owner, repo, branch, path)
	if err != nil {
		slog.Error("error fetching file", "repo", owner+"/"+repo, "path", path, "error", err)
		return port.Fallback("", err.Error())
	}
	return port.OK(content)
}

// GetRepoContentSummary builds the text sent to the AI client: the tree
// listing followed by capped excerpts of the key files that exist. The walked
// tree is returned alongside.
func (s *RepoService) GetRepoContentSummary(ctx context.Context, owner, repo, branch string) (string, []domain.FileInfo) {
	tree := s.GetFileTree(ctx, owner, repo, branch)
	return s.summarize(ctx, owner, repo, branch, tree), tree
}

func (s *RepoService) summarize(ctx context.Context, owner, repo, branch string, tree []domain.FileInfo) string {
	listing := make([]string, 0, len(tree))
	for _, t := range tree {
		if t.IsDir() {
			listing = append(listing, t.Path+"/")
		} else {
			listing = append(listing, t.Path)
		}
	}

	summary := []string{SummaryHeader, strings.Join(listing, "\n")}
	for _, name := range KeyFiles {
		info, ok := findByName(tree, name)
		if !ok {
			continue
		}
		content := s.GetFileContent(ctx, owner, repo, branch, info.Path)
		if content.Value == "" {
			continue
		}
		summary = append(summary, "\n--- "+name+" ---\n"+truncateRunes(content.Value, KeyFileExcerptChars))
	}
	return strings.Join(summary, "\n")
}

func findByName(tree []domain.FileInfo, name string) (domain.FileInfo, bool) {
	for _, t := range tree {
		if t.Type == domain.FileTypeFile && t.Name == name {
			return t, true
		}
	}
	return domain.FileInfo{}, false
}

// truncateRunes returns at most n characters of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
