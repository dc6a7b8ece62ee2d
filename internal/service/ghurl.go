package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/port"
)

var (
	githubHTTPRe = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?(?:[/?#].*)?$`)
	githubSSHRe  = regexp.MustCompile(`^git@github\.com:([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)
)

// ParseGitHubURL extracts owner and repository name from the usual GitHub URL
// forms: https, http, scheme-less, www, .git suffix, deep links such as
// /tree/main/docs, and git@github.com:owner/repo.git.
func ParseGitHubURL(raw string) (owner, repo string, err error) {
	s := strings.TrimSpace(raw)
	m := githubHTTPRe.FindStringSubmatch(s)
	if m == nil {
		m = githubSSHRe.FindStringSubmatch(s)
	}
	if m == nil || isDots(m[1]) || isDots(m[2]) {
		return "", "", fmt.Errorf("%w: %q", port.ErrInvalidRepoURL, raw)
	}
	return m[1], m[2], nil
}

func isDots(s string) bool { return strings.Trim(s, ".") == "" }
