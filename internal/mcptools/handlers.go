package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/export"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
)

// AppealService handles MCP tool calls. It wraps an Orchestrator to draft
// appeals and the registry and deadline calculator for the query tools.
type AppealService struct {
	pipeline  orchestrator.Orchestrator
	registry  *agent.Registry
	creds     agent.CredentialSource
	deadlines *deadline.Calculator
	now       func() time.Time
}

// NewAppealService creates an AppealService. creds and deadlines may be nil.
func NewAppealService(pipeline orchestrator.Orchestrator, registry *agent.Registry, creds agent.CredentialSource, deadlines *deadline.Calculator) *AppealService {
	if deadlines == nil {
		deadlines = deadline.NewCalculator(deadline.DefaultRules())
	}
	return &AppealService{
		pipeline:  pipeline,
		registry:  registry,
		creds:     creds,
		deadlines: deadlines,
		now:       time.Now,
	}
}

// DraftAppeal runs the full pipeline for one fine.
func (s *AppealService) DraftAppeal(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DraftAppealInput,
) (*mcp.CallToolResult, DraftAppealOutput, error) {
	if input.FilePath == "" && strings.TrimSpace(input.FineText) == "" {
		return nil, DraftAppealOutput{Status: "failed", Agents: []AgentOutcome{}}, errors.New("filePath or fineText is required")
	}

	req := orchestrator.Request{
		FineText:          input.FineText,
		AdditionalContext: input.AdditionalContext,
		Strategy:          orchestrator.MergeStrategy(input.Strategy),
	}
	if input.FilePath != "" {
		f, err := orchestrator.LoadFile(input.FilePath)
		if err != nil {
			return nil, DraftAppealOutput{Status: "failed", Agents: []AgentOutcome{}}, err
		}
		req.Fine = f
	}
	for _, sf := range input.SupportFiles {
		f, err := orchestrator.LoadFile(sf.Path)
		if err != nil {
			return nil, DraftAppealOutput{Status: "failed", Agents: []AgentOutcome{}}, err
		}
		req.SupportFiles = append(req.SupportFiles, orchestrator.SupportFile{File: f, Context: sf.Context})
	}

	resp, err := s.pipeline.Run(ctx, req)
	if resp == nil {
		return nil, DraftAppealOutput{Status: "failed", Message: err.Error(), Agents: []AgentOutcome{}}, nil
	}

	out := DraftAppealOutput{
		RequestID:     resp.RequestID,
		Status:        "completed",
		Document:      resp.MergedDocument.Content,
		Strategy:      string(resp.MergeStrategy),
		Instructions:  resp.Instructions,
		Deadline:      resp.DeadlineInfo,
		SubmissionURL: resp.SubmissionURL,
		Agents:        make([]AgentOutcome, 0, len(resp.AgentResults)),
		Warnings:      resp.Warnings,
	}
	for _, r := range resp.AgentResults {
		out.Agents = append(out.Agents, AgentOutcome{ID: r.AgentID, Status: string(r.Status), Error: r.Error})
	}
	if err != nil {
		out.Status = "failed"
		out.Message = err.Error()
		return nil, out, nil
	}

	if input.OutputDir != "" {
		written, err := export.WriteBundle(input.OutputDir, resp, s.now())
		if err != nil {
			out.Message = err.Error()
		}
		out.FilesWritten = written
	}
	return nil, out, nil
}

// ComputeDeadline evaluates a fine's text without calling any agent.
func (s *AppealService) ComputeDeadline(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ComputeDeadlineInput,
) (*mcp.CallToolResult, ComputeDeadlineOutput, error) {
	today := s.now()
	if input.Today != "" {
		t, err := time.Parse("2006-01-02", input.Today)
		if err != nil {
			return nil, ComputeDeadlineOutput{}, fmt.Errorf("invalid today %q: want YYYY-MM-DD", input.Today)
		}
		today = t
	}
	info := s.deadlines.ComputeAt(input.Text, today)
	return nil, ComputeDeadlineOutput{Found: info != nil, Deadline: info}, nil
}

// ListAgents reports the configured agents and whether a central credential
// is available for each.
func (s *AppealService) ListAgents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListAgentsInput,
) (*mcp.CallToolResult, ListAgentsOutput, error) {
	ids := s.registry.ListAgents()
	out := ListAgentsOutput{Agents: make([]AgentSummary, 0, len(ids))}
	for _, a := range ids {
		configured := false
		if s.creds != nil && a.CredentialKey != "" {
			c, err := s.creds.Credential(ctx, a.CredentialKey)
			configured = err == nil && c != ""
		}
		out.Agents = append(out.Agents, AgentSummary{
			ID:         a.ID,
			Label:      a.Label,
			Provider:   string(a.Provider),
			Model:      a.Model,
			Vision:     a.Vision,
			Enabled:    a.Enabled,
			Configured: configured,
		})
	}
	return nil, out, nil
}
