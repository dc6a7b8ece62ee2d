package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrRepoNotFound     = errors.New("repository not found")
	ErrRateLimited      = errors.New("rate limited by repository host")
	ErrInvalidRepoURL   = errors.New("invalid GitHub URL")
	ErrMissingFields    = errors.New("missing required fields")
	ErrMissingAPIKey    = errors.New("API key required")
	ErrMissingMessage   = errors.New("message is required")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrJobNotFound      = errors.New("job not found")
	ErrStateNotFound    = errors.New("state not found")
)
