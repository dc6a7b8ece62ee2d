package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/arturoeanton/code-atlas/internal/port"
	genai "google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no candidates.
var ErrEmptyResponse = errors.New("gemini: empty response")

// GeminiConfig holds process-wide settings for Gemini clients.
type GeminiConfig struct {
	BaseURL      string // empty = public Gemini API endpoint
	DefaultModel string
}

// GeminiProvider implements port.AIProvider on the official genai client.
// One provider is bound to one API key and one model.
type GeminiProvider struct {
	cli   *genai.Client
	model string
}

// NewGeminiProvider creates a provider for apiKey. An empty model selects the default.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, port.ErrMissingAPIKey
	}
	if model == "" {
		model = cfg.DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{cli: cli, model: model}, nil
}

// NewGeminiFactory returns a port.AIFactory bound to cfg.
func NewGeminiFactory(cfg GeminiConfig) port.AIFactory {
	return func(ctx context.Context, apiKey, model string) (port.AIProvider, error) {
		return NewGeminiProvider(ctx, cfg, apiKey, model)
	}
}

// ModelName returns the model identifier.
func (g *GeminiProvider) ModelName() string { return g.model }

// Generate runs one generation call and returns the response text.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Text(), nil
}

// GenerateStream yields the text of each streamed chunk. Chunks without text are skipped.
func (g *GeminiProvider) GenerateStream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), nil) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}
