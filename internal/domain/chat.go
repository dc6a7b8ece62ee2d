package domain

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the chat transcript.
type ChatMessage struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Sources   []ChatSource `json:"sources,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ChatSource cites a file that informed an answer.
type ChatSource struct {
	File      string  `json:"file"`
	Relevance float64 `json:"relevance"`
	Excerpt   string  `json:"excerpt,omitempty"`
}

// RepoContext is the slice of an analysis sent along with chat requests.
type RepoContext struct {
	Summary      string   `json:"summary"`
	TechStack    []string `json:"techStack"`
	Architecture string   `json:"architecture"`
}

// ContextFor extracts the chat context from an analysis. Nil in, nil out.
func ContextFor(a *Analysis) *RepoContext {
	if a == nil {
		return nil
	}
	return &RepoContext{
		Summary:      a.Summary,
		TechStack:    a.TechStack,
		Architecture: a.Architecture,
	}
}
