package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/middleware"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
)

type toolHandler struct {
	analyses *service.AnalysisService
	audit    middleware.AuditWriter
}

func (h *toolHandler) record(tool, resourceID string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.WriteAudit(domain.AuditActionMCPCall, "mcp", resourceID, fmt.Sprintf(`{"tool":%q}`, tool), "", "mcp"); err != nil {
		slog.Error("failed to write audit log", "tool", tool, "error", err)
	}
}

func analyzeRequest(request mcp.CallToolRequest) port.AnalyzeRequest {
	return port.AnalyzeRequest{
		URL:         request.GetString("url", ""),
		APIKey:      request.GetString("api_key", ""),
		GitHubToken: request.GetString("github_token", ""),
		Model:       request.GetString("model", ""),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandler) handleAnalyzeRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.analyses.Analyze(ctx, analyzeRequest(request), nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	h.record("analyze_repository", result.ID)
	return jsonResult(result)
}

func (h *toolHandler) handleGetAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	a, err := h.analyses.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.record("get_analysis", id)
	return jsonResult(a)
}

func (h *toolHandler) handleListAnalyses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.analyses.List(ctx, request.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.record("list_analyses", "")
	return jsonResult(list)
}

func (h *toolHandler) handleParseGitHubURL(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := service.ParseGitHubURL(request.GetString("url", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"owner": owner, "repo": repo})
}

func (h *toolHandler) handleExplainFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	out, err := h.analyses.ExplainFile(ctx, analyzeRequest(request), path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("explain failed: %v", err)), nil
	}
	h.record("explain_file", path)
	return jsonResult(out.Value)
}

func (h *toolHandler) handleAnalyzeModule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.analyses.AnalyzeModule(ctx, analyzeRequest(request), request.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("module analysis failed: %v", err)), nil
	}
	h.record("analyze_module", out.Value.Path)
	return jsonResult(out.Value)
}
