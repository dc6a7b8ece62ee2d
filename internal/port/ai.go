package port

import (
	"context"
	"iter"
)

// AIProvider abstracts the generative-text backend.
// Implementations are bound to one credential and one model.
type AIProvider interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Generate sends a prompt and returns the complete text response.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream sends a prompt and yields text increments in order.
	// Iteration stops at the first error; cancelling ctx aborts the upstream call.
	GenerateStream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// AIFactory builds a provider for a caller-supplied key and model.
type AIFactory func(ctx context.Context, apiKey, model string) (AIProvider, error)
