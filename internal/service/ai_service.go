package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/kaptinlin/jsonrepair"
)

// PlaceholderDiagram is returned when the model produced no usable diagram.
const PlaceholderDiagram = "graph TD\n  A[Start] --> B[End]"

const (
	summaryPrompt = `You are an expert software architect. Analyze the repository content below and respond with a single JSON object:
{"summary": "<2-4 paragraph overview>", "purpose": "<one sentence>", "architecture": "<how the system is structured>", "techStack": ["<technology>", ...]}
Respond with JSON only.`

	fileExplanationPrompt = `You are an expert developer. Explain the code file below and respond with a single JSON object:
{"summary": "<one sentence>", "explanation": "<what the code does and how>", "language": "<programming language>", "lines": <number of lines>}
Respond with JSON only.`

	moduleInsightPrompt = `You are an expert software architect. Analyze the module below and respond with a single JSON object:
{"summary": "<short description>", "purpose": "<role of the module in the system>", "files": ["<important file>", ...]}
Respond with JSON only.`

	codeHealthPrompt = `You are a senior code reviewer. Assess the health of the repository below and respond with a single JSON object:
{"overall": "excellent" | "good" | "needs-work" | "poor", "score": <0-100>, "issues": [{"severity": "info" | "warning" | "error", "category": "<area>", "message": "<finding>", "file": "<optional path>"}], "suggestions": ["<improvement>", ...]}
Respond with JSON only.`

	diagramPrompt = "Generate valid Mermaid diagram syntax only. Wrap the diagram in a ```mermaid code block and do not add any explanation."

	chatPersona = `You are CodeAtlas, an expert developer assistant. Answer questions about the repository clearly and concisely.
Use Markdown formatting. Include Mermaid diagrams when they help.`
)

var diagramInstructions = map[domain.DiagramKind]string{
	domain.DiagramArchitecture: "Draw a flowchart (graph TD) of the system's main components and how they interact.",
	domain.DiagramHierarchy:    "Draw a top-down graph (graph TD) of the project's directory and module hierarchy.",
	domain.DiagramDataFlow:     "Draw a flowchart (flowchart LR) showing how data moves through the system.",
	domain.DiagramClass:        "Draw a classDiagram of the main types, their fields and relationships.",
	domain.DiagramDependency:   "Draw a graph (graph LR) of internal modules and external dependencies and what depends on what.",
	domain.DiagramMindmap:      "Draw a mindmap of the project's main concepts and features.",
}

var mermaidKeywords = []string{
	"graph", "flowchart", "classDiagram", "sequenceDiagram", "stateDiagram",
	"erDiagram", "mindmap", "gitGraph", "journey", "pie", "timeline",
}

var (
	jsonObjectRe  = regexp.MustCompile(`(?s)\{.*\}`)
	fencedBlockRe = regexp.MustCompile("(?s)```(?:mermaid)?[ \\t]*\\n?(.*?)```")
)

var errNoJSON = errors.New("no JSON object in response")

// AIService turns model responses into structured analysis values.
// Parse failures degrade to fixed defaults; only model call failures are errors.
type AIService struct {
	ai port.AIProvider
}

// NewAIService creates an AI service over provider.
func NewAIService(ai port.AIProvider) *AIService {
	return &AIService{ai: ai}
}

// ModelName returns the model in use.
func (s *AIService) ModelName() string { return s.ai.ModelName() }

// GenerateSummary produces the summary, architecture and tech stack.
func (s *AIService) GenerateSummary(ctx context.Context, content string) (port.Outcome[domain.SummaryInsight], error) {
	resp, err := s.ai.Generate(ctx, summaryPrompt+"\n\n"+content)
	if err != nil {
		return port.Outcome[domain.SummaryInsight]{}, fmt.Errorf("generate summary: %w", err)
	}

	var out domain.SummaryInsight
	if err := parseJSONObject(resp, &out); err != nil {
		slog.Warn("summary response not parseable, using default", "model", s.ai.ModelName(), "error", err)
		return port.Fallback(domain.SummaryInsight{
			Summary:      truncateRunes(content, 500),
			Purpose:      "Repository analysis",
			Architecture: "See summary",
			TechStack:    []string{},
		}, err.Error()), nil
	}
	if out.TechStack == nil {
		out.TechStack = []string{}
	}
	return port.OK(out), nil
}

// ExplainFile explains a single file.
func (s *AIService) ExplainFile(ctx context.Context, content, filename string) (port.Outcome[domain.FileInsight], error) {
	resp, err := s.ai.Generate(ctx, fileExplanationPrompt+"\n\nFilename: "+filename+"\n"+content)
	if err != nil {
		return port.Outcome[domain.FileInsight]{}, fmt.Errorf("explain file: %w", err)
	}

	var out domain.FileInsight
	if err := parseJSONObject(resp, &out); err != nil {
		return port.Fallback(domain.FileInsight{
			Path:        filename,
			Summary:     truncateRunes(content, 200),
			Explanation: resp,
			Language:    "Unknown",
			Lines:       len(strings.Split(content, "\n")),
		}, err.Error()), nil
	}
	out.Path = filename
	return port.OK(out), nil
}

// AnalyzeModule describes one module directory.
func (s *AIService) AnalyzeModule(ctx context.Context, content, modulePath string) (port.Outcome[domain.ModuleInsight], error) {
	resp, err := s.ai.Generate(ctx, moduleInsightPrompt+"\n\nModule: "+modulePath+"\n"+content)
	if err != nil {
		return port.Outcome[domain.ModuleInsight]{}, fmt.Errorf("analyze module: %w", err)
	}

	var out domain.ModuleInsight
	if err := parseJSONObject(resp, &out); err != nil {
		return port.Fallback(domain.ModuleInsight{
			Path:    modulePath,
			Summary: truncateRunes(content, 300),
			Purpose: "Module analysis",
			Files:   []string{},
		}, err.Error()), nil
	}
	out.Path = modulePath
	if out.Files == nil {
		out.Files = []string{}
	}
	return port.OK(out), nil
}

// AnalyzeCodeHealth scores the repository.
func (s *AIService) AnalyzeCodeHealth(ctx context.Context, content string) (port.Outcome[domain.CodeHealth], error) {
	resp, err := s.ai.Generate(ctx, codeHealthPrompt+"\n\n"+content)
	if err != nil {
		return port.Outcome[domain.CodeHealth]{}, fmt.Errorf("analyze code health: %w", err)
	}

	var out domain.CodeHealth
	if err := parseJSONObject(resp, &out); err != nil {
		slog.Warn("code health response not parseable, using default", "model", s.ai.ModelName(), "error", err)
		return port.Fallback(DefaultCodeHealth(), err.Error()), nil
	}
	if !out.Overall.Valid() {
		out.Overall = domain.LevelForScore(out.Score)
	}
	if out.Issues == nil {
		out.Issues = []domain.HealthIssue{}
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return port.OK(out), nil
}

// DefaultCodeHealth is the value used when the model's answer cannot be parsed.
func DefaultCodeHealth() domain.CodeHealth {
	return domain.CodeHealth{
		Overall:     domain.HealthGood,
		Score:       80,
		Issues:      []domain.HealthIssue{},
		Suggestions: []string{"Analysis complete"},
	}
}

// GenerateDiagram returns Mermaid source for kind. Unusable output degrades
// to PlaceholderDiagram.
func (s *AIService) GenerateDiagram(ctx context.Context, kind domain.DiagramKind, content string) (port.Outcome[string], error) {
	prompt := "Generate " + string(kind) + " Mermaid diagram. " + diagramInstructions[kind] + " " + diagramPrompt + "\n\n" + content
	resp, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		return port.Outcome[string]{}, fmt.Errorf("generate %s diagram: %w", kind, err)
	}
	return ExtractDiagram(resp), nil
}

// ExtractDiagram pulls Mermaid source out of a model response.
func ExtractDiagram(resp string) port.Outcome[string] {
	if m := fencedBlockRe.FindStringSubmatch(resp); m != nil {
		if src := strings.TrimSpace(m[1]); src != "" {
			return port.OK(src)
		}
	}
	trimmed := strings.TrimSpace(resp)
	for _, kw := range mermaidKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return port.OK(trimmed)
		}
	}
	return port.Fallback(PlaceholderDiagram, "no diagram in response")
}

// StreamChat yields the assistant's answer increment by increment.
// history is the prior transcript; message is the new user turn.
func (s *AIService) StreamChat(ctx context.Context, history []domain.ChatMessage, message string, rc *domain.RepoContext) iter.Seq2[string, error] {
	return s.ai.GenerateStream(ctx, BuildChatPrompt(history, message, rc))
}

// BuildChatPrompt flattens persona, repository context and transcript into one prompt.
func BuildChatPrompt(history []domain.ChatMessage, message string, rc *domain.RepoContext) string {
	var sb strings.Builder
	sb.WriteString(chatPersona)

	if ctxBlock := repoContextBlock(rc); ctxBlock != "" {
		sb.WriteString("\n\nRepository Context:\n")
		sb.WriteString(ctxBlock)
	}

	turns := make([]string, 0, len(history)+1)
	var last *domain.ChatMessage
	for i := range history {
		m := history[i]
		if strings.TrimSpace(m.Content) == "" {
			continue // in-flight assistant placeholder
		}
		turns = append(turns, string(m.Role)+": "+m.Content)
		last = &history[i]
	}
	if last == nil || last.Role != domain.RoleUser || last.Content != message {
		turns = append(turns, string(domain.RoleUser)+": "+message)
	}

	sb.WriteString("\n\nConversation:\n")
	sb.WriteString(strings.Join(turns, "\n\n"))
	return sb.String()
}

func repoContextBlock(rc *domain.RepoContext) string {
	if rc == nil {
		return ""
	}
	return fmt.Sprintf(`
Repository: %s

Tech Stack: %s

Architecture: %s

Please use this context to answer questions about the codebase.
`, rc.Summary, strings.Join(rc.TechStack, ", "), rc.Architecture)
}

// parseJSONObject decodes the first-to-last brace span of resp into v,
// retrying once through jsonrepair.
func parseJSONObject(resp string, v any) error {
	match := jsonObjectRe.FindString(resp)
	if match == "" {
		return errNoJSON
	}
	err := json.Unmarshal([]byte(match), v)
	if err == nil {
		return nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(match)
	if repairErr != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decode repaired JSON: %w", err)
	}
	return nil
}
