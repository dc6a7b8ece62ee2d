package domain

import "time"

// AuditLog is one entry of the audit trail: an HTTP request, a completed
// analysis, a chat relay or an MCP tool call. Details holds a JSON object.
type AuditLog struct {
	ID         string    `json:"id"         db:"id"`
	Action     string    `json:"action"     db:"action"`
	Resource   string    `json:"resource"   db:"resource"`
	ResourceID string    `json:"resource_id" db:"resource_id"`
	Details    string    `json:"details"    db:"details"`
	IP         string    `json:"ip"         db:"ip"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const (
	AuditActionHTTPRequest = "http_request"
	AuditActionAnalysisRun = "analysis_run"
	AuditActionChat        = "chat"
	AuditActionMCPCall     = "mcp_call"
)
