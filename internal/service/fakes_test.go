package service

import (
	"context"
	"errors"
	"iter"
	"path"
	"strings"
	"sync"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
)

type fakeHost struct {
	mu      sync.Mutex
	repo    *domain.Repository
	repoErr error
	dirs    map[string][]domain.FileInfo
	dirErrs map[string]error
	files   map[string]string
	listed  []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		repo: &domain.Repository{
			Owner: "acme", Name: "widget", FullName: "acme/widget",
			DefaultBranch: "main", URL: "https://github.com/acme/widget", Topics: []string{},
		},
		dirs:    map[string][]domain.FileInfo{},
		dirErrs: map[string]error{},
		files:   map[string]string{},
	}
}

func (f *fakeHost) addFile(p string, content string) {
	f.addFileSized(p, content, int64(len(content)))
}

func (f *fakeHost) addFileSized(p, content string, size int64) {
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	f.dirs[dir] = append(f.dirs[dir], domain.FileInfo{Path: p, Name: path.Base(p), Type: domain.FileTypeFile, Size: size})
	f.files[p] = content
}

func (f *fakeHost) addDir(p string) {
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	f.dirs[dir] = append(f.dirs[dir], domain.FileInfo{Path: p, Name: path.Base(p), Type: domain.FileTypeDirectory})
}

func (f *fakeHost) GetRepo(ctx context.Context, owner, repo string) (*domain.Repository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return f.repo, nil
}

func (f *fakeHost) ListDir(ctx context.Context, owner, repo, ref, p string) ([]domain.FileInfo, error) {
	f.mu.Lock()
	f.listed = append(f.listed, p)
	f.mu.Unlock()
	if err := f.dirErrs[p]; err != nil {
		return nil, err
	}
	return f.dirs[p], nil
}

func (f *fakeHost) ReadFile(ctx context.Context, owner, repo, ref, p string) (string, error) {
	c, ok := f.files[p]
	if !ok {
		return "", port.ErrRepoNotFound
	}
	return c, nil
}

// fakeAI answers prompts by first matching substring.
type fakeAI struct {
	mu       sync.Mutex
	replies  []fakeReply
	fallback string
	err      error
	prompts  []string
	chunks   []string
}

type fakeReply struct {
	contains string
	reply    string
}

func (f *fakeAI) on(contains, reply string) *fakeAI {
	f.replies = append(f.replies, fakeReply{contains, reply})
	return f
}

func (f *fakeAI) ModelName() string { return "fake-model" }

func (f *fakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	for _, r := range f.replies {
		if strings.Contains(prompt, r.contains) {
			return r.reply, nil
		}
	}
	return f.fallback, nil
}

func (f *fakeAI) GenerateStream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return func(yield func(string, error) bool) {
		if f.err != nil {
			yield("", f.err)
			return
		}
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

var errBoom = errors.New("boom")
