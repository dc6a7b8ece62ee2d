package vcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// GitHubConfig configures access to the GitHub REST API.
type GitHubConfig struct {
	Token   string  // default token used when a request carries none
	BaseURL string  // empty = https://api.github.com/
	RPS     float64 // request rate shared by all clients (0 = unlimited)
	Burst   int
}

// GitHubProvider implements port.RepoHost against the GitHub REST API.
type GitHubProvider struct {
	client  *gogithub.Client
	limiter *rate.Limiter
}

// NewGitHubProvider creates a provider authenticated with token (may be empty).
func NewGitHubProvider(cfg GitHubConfig, token string, limiter *rate.Limiter) (*GitHubProvider, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := gogithub.NewClient(httpClient)

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}

	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &GitHubProvider{client: client, limiter: limiter}, nil
}

// NewGitHubFactory returns a factory that builds one provider per request
// token while sharing a single rate limiter.
func NewGitHubFactory(cfg GitHubConfig) (port.RepoHostFactory, error) {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	// Validate the base URL once so the factory itself cannot fail later.
	if _, err := NewGitHubProvider(cfg, "", limiter); err != nil {
		return nil, err
	}

	return func(token string) port.RepoHost {
		if token == "" {
			token = cfg.Token
		}
		p, _ := NewGitHubProvider(cfg, token, limiter)
		return p
	}, nil
}

// GetRepo returns repository metadata.
func (g *GitHubProvider) GetRepo(ctx context.Context, owner, name string) (*domain.Repository, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	r, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("getting GitHub repo %s/%s: %w", owner, name, classify(err))
	}

	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return &domain.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		Language:      r.Language,
		Topics:        topics,
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}, nil
}

// ListDir returns the entries of a directory. A file path yields a single entry.
func (g *GitHubProvider) ListDir(ctx context.Context, owner, name, ref, path string) ([]domain.FileInfo, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	file, dir, _, err := g.client.Repositories.GetContents(ctx, owner, name, path, contentOpts(ref))
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s:%s: %w", owner, name, path, classify(err))
	}

	if file != nil {
		dir = []*gogithub.RepositoryContent{file}
	}
	entries := make([]domain.FileInfo, 0, len(dir))
	for _, c := range dir {
		if c == nil {
			continue
		}
		var typ domain.FileType
		switch c.GetType() {
		case "dir":
			typ = domain.FileTypeDirectory
		case "file":
			typ = domain.FileTypeFile
		default:
			continue // symlinks and submodules are not walked
		}
		entries = append(entries, domain.FileInfo{
			Path: c.GetPath(),
			Name: c.GetName(),
			Type: typ,
			Size: int64(c.GetSize()),
		})
	}
	return entries, nil
}

// ReadFile returns the base64-decoded content of a file.
func (g *GitHubProvider) ReadFile(ctx context.Context, owner, name, ref, path string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, name, path, contentOpts(ref))
	if err != nil {
		return "", fmt.Errorf("reading %s/%s:%s: %w", owner, name, path, classify(err))
	}
	if file == nil {
		return "", fmt.Errorf("reading %s/%s:%s: path is a directory", owner, name, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return content, nil
}

func contentOpts(ref string) *gogithub.RepositoryContentGetOptions {
	if ref == "" {
		return nil
	}
	return &gogithub.RepositoryContentGetOptions{Ref: ref}
}

// classify maps go-github errors onto port sentinels, keeping the host message.
func classify(err error) error {
	var rle *gogithub.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("%w: %s", port.ErrRateLimited, rle.Message)
	}
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return fmt.Errorf("%w: %s", port.ErrRateLimited, abuse.Message)
	}
	var er *gogithub.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch er.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", port.ErrRepoNotFound, er.Message)
		case http.StatusForbidden, http.StatusTooManyRequests:
			if strings.Contains(strings.ToLower(er.Message), "rate limit") {
				return fmt.Errorf("%w: %s", port.ErrRateLimited, er.Message)
			}
		}
	}
	return err
}
