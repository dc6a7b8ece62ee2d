package service

import (
	"testing"

	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubURL(t *testing.T) {
	cases := []struct {
		in    string
		owner string
		repo  string
	}{
		{"https://github.com/octocat/Hello-World", "octocat", "Hello-World"},
		{"http://github.com/octocat/Hello-World/", "octocat", "Hello-World"},
		{"https://www.github.com/octocat/Hello-World.git", "octocat", "Hello-World"},
		{"github.com/golang/go", "golang", "go"},
		{"https://github.com/vercel/next.js", "vercel", "next.js"},
		{"https://github.com/octocat/Hello-World/tree/main/docs", "octocat", "Hello-World"},
		{"https://github.com/octocat/Hello-World?tab=readme", "octocat", "Hello-World"},
		{"git@github.com:octocat/Hello-World.git", "octocat", "Hello-World"},
		{"  https://github.com/a/b  ", "a", "b"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			owner, repo, err := ParseGitHubURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.owner, owner)
			assert.Equal(t, tc.repo, repo)
		})
	}
}

func TestParseGitHubURL_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"not a url",
		"https://gitlab.com/a/b",
		"https://github.com/onlyowner",
		"https://github.com/",
		"https://github.com/../..",
		"ftp://github.com/a/b",
	} {
		t.Run(in, func(t *testing.T) {
			_, _, err := ParseGitHubURL(in)
			assert.ErrorIs(t, err, port.ErrInvalidRepoURL)
		})
	}
}
