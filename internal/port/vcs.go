package port

import (
	"context"

	"github.com/arturoeanton/code-atlas/internal/domain"
)

// RepoHost abstracts the source-hosting REST API.
type RepoHost interface {
	// GetRepo returns repository metadata.
	GetRepo(ctx context.Context, owner, repo string) (*domain.Repository, error)

	// ListDir returns the direct children of path ("" is the root) at ref.
	ListDir(ctx context.Context, owner, repo, ref, path string) ([]domain.FileInfo, error)

	// ReadFile returns the decoded content of a file at ref.
	ReadFile(ctx context.Context, owner, repo, ref, path string) (string, error)
}

// RepoHostFactory builds a host client for an optional per-request token.
type RepoHostFactory func(token string) RepoHost
