package mcptools

import (
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
)

// --- MCP tool types for appealdraft mcp ---

// DraftAppealInput is the input for the draft_appeal MCP tool.
type DraftAppealInput struct {
	FilePath          string             `json:"filePath,omitempty" jsonschema:"path to the fine notice (PDF or image). Either filePath or fineText is required"`
	FineText          string             `json:"fineText,omitempty" jsonschema:"plain text of the fine notice"`
	AdditionalContext string             `json:"additionalContext,omitempty" jsonschema:"the user's own account and arguments"`
	SupportFiles      []SupportFileInput `json:"supportFiles,omitempty" jsonschema:"supporting documents"`
	Strategy          string             `json:"strategy,omitempty" jsonschema:"merge strategy: heuristic or master"`
	OutputDir         string             `json:"outputDir,omitempty" jsonschema:"when set, recurso.docx, response.json and instrucciones.txt are written here"`
}

// SupportFileInput is one supporting document on disk.
type SupportFileInput struct {
	Path    string `json:"path" jsonschema:"path to the document"`
	Context string `json:"context,omitempty" jsonschema:"what the document proves"`
}

// DraftAppealOutput is the result of the draft_appeal MCP tool.
type DraftAppealOutput struct {
	RequestID     string                              `json:"requestId,omitempty"`
	Status        string                              `json:"status"` // "completed" or "failed"
	Message       string                              `json:"message,omitempty"`
	Document      string                              `json:"document,omitempty"`
	Strategy      string                              `json:"strategy,omitempty"`
	Instructions  string                              `json:"instructions,omitempty"`
	Deadline      *deadline.Info                      `json:"deadline,omitempty"`
	SubmissionURL *orchestrator.SubmissionURLProposal `json:"submissionUrl,omitempty"`
	Agents        []AgentOutcome                      `json:"agents"`
	Warnings      []string                            `json:"warnings,omitempty"`
	FilesWritten  []string                            `json:"filesWritten,omitempty"`
}

// AgentOutcome is one agent's draft-phase result.
type AgentOutcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ComputeDeadlineInput is the input for the compute_deadline MCP tool.
type ComputeDeadlineInput struct {
	Text  string `json:"text" jsonschema:"fine text or summary containing the notification date"`
	Today string `json:"today,omitempty" jsonschema:"reference date YYYY-MM-DD (default: today)"`
}

// ComputeDeadlineOutput is the result of the compute_deadline MCP tool.
type ComputeDeadlineOutput struct {
	Found    bool           `json:"found"`
	Deadline *deadline.Info `json:"deadline,omitempty"`
}

// ListAgentsInput is the input for the list_agents MCP tool.
type ListAgentsInput struct{}

// ListAgentsOutput is the result of the list_agents MCP tool.
type ListAgentsOutput struct {
	Agents []AgentSummary `json:"agents"`
}

// AgentSummary is a brief overview of one agent.
type AgentSummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Vision     bool   `json:"vision"`
	Enabled    bool   `json:"enabled"`
	Configured bool   `json:"configured"`
}
