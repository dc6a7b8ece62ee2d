// Package mcp exposes the analysis pipeline as Model Context Protocol tools.
package mcp

import (
	"log/slog"

	"github.com/arturoeanton/code-atlas/internal/middleware"
	"github.com/arturoeanton/code-atlas/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer builds the tool server without starting it. audit may be nil.
func NewMCPServer(analyses *service.AnalysisService, audit middleware.AuditWriter) *server.MCPServer {
	s := server.NewMCPServer(
		"CodeAtlas",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{analyses: analyses, audit: audit}

	s.AddTool(mcp.NewTool("analyze_repository",
		mcp.WithDescription("Analyze a GitHub repository: summary, architecture, tech stack, six Mermaid diagrams and a code health score."),
		mcp.WithString("url", mcp.Description("GitHub repository URL, e.g. https://github.com/owner/repo."), mcp.Required()),
		mcp.WithString("api_key", mcp.Description("Gemini API key."), mcp.Required()),
		mcp.WithString("github_token", mcp.Description("Optional GitHub token for private repositories and higher rate limits.")),
		mcp.WithString("model", mcp.Description("Gemini model (gemini-1.5-flash, gemini-1.5-pro, gemini-2.0-flash).")),
	), h.handleAnalyzeRepository)

	s.AddTool(mcp.NewTool("get_analysis",
		mcp.WithDescription("Fetch a previously computed analysis by id."),
		mcp.WithString("id", mcp.Description("Analysis id returned by analyze_repository."), mcp.Required()),
	), h.handleGetAnalysis)

	s.AddTool(mcp.NewTool("list_analyses",
		mcp.WithDescription("List recent analyses, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of analyses. Defaults to 20.")),
	), h.handleListAnalyses)

	s.AddTool(mcp.NewTool("parse_github_url",
		mcp.WithDescription("Extract owner and repository name from a GitHub URL."),
		mcp.WithString("url", mcp.Description("GitHub URL in any common form."), mcp.Required()),
	), h.handleParseGitHubURL)

	s.AddTool(mcp.NewTool("explain_file",
		mcp.WithDescription("Explain a single file of a GitHub repository."),
		mcp.WithString("url", mcp.Description("GitHub repository URL."), mcp.Required()),
		mcp.WithString("path", mcp.Description("File path inside the repository."), mcp.Required()),
		mcp.WithString("api_key", mcp.Description("Gemini API key."), mcp.Required()),
		mcp.WithString("github_token", mcp.Description("Optional GitHub token.")),
		mcp.WithString("model", mcp.Description("Gemini model.")),
	), h.handleExplainFile)

	s.AddTool(mcp.NewTool("analyze_module",
		mcp.WithDescription("Describe the purpose and key files of one directory of a GitHub repository."),
		mcp.WithString("url", mcp.Description("GitHub repository URL."), mcp.Required()),
		mcp.WithString("path", mcp.Description("Directory path inside the repository."), mcp.Required()),
		mcp.WithString("api_key", mcp.Description("Gemini API key."), mcp.Required()),
		mcp.WithString("github_token", mcp.Description("Optional GitHub token.")),
		mcp.WithString("model", mcp.Description("Gemini model.")),
	), h.handleAnalyzeModule)

	return s
}

// StartHTTP serves the tools over streamable HTTP at /mcp on port.
func StartHTTP(s *server.MCPServer, port string) error {
	slog.Info("MCP server starting", "port", port)
	return server.NewStreamableHTTPServer(s, server.WithEndpointPath("/mcp")).Start(":" + port)
}
