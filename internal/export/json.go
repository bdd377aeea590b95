// Package export writes a finished appeal to disk.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
	"github.com/dusk-indust/appealdraft/internal/render"
)

// Bundle file names.
const (
	DocumentFile     = "recurso.docx"
	ResponseFile     = "response.json"
	InstructionsFile = "instrucciones.txt"
)

// AppealExport is the top-level JSON export structure.
type AppealExport struct {
	RequestID     string                              `json:"requestId"`
	ExportedAt    string                              `json:"exportedAt"`
	Strategy      orchestrator.MergeStrategy          `json:"strategy"`
	MasterAgentID string                              `json:"masterAgentId,omitempty"`
	Sources       []string                            `json:"sources"`
	Document      string                              `json:"document"`
	Agents        []AgentExport                       `json:"agents"`
	Metadata      orchestrator.FineMetadata           `json:"metadata"`
	Deadline      *deadline.Info                      `json:"deadline,omitempty"`
	SubmissionURL *orchestrator.SubmissionURLProposal `json:"submissionUrl,omitempty"`
	Warnings      []string                            `json:"warnings,omitempty"`
	Error         string                              `json:"error,omitempty"`
}

// AgentExport describes one agent's part in a request.
type AgentExport struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Metadata   string `json:"metadata"`
	Draft      string `json:"draft"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// BuildExport summarizes resp as of at.
func BuildExport(resp *orchestrator.Response, at time.Time) *AppealExport {
	exp := &AppealExport{
		RequestID:     resp.RequestID,
		ExportedAt:    at.UTC().Format(time.RFC3339),
		Strategy:      resp.MergedDocument.Strategy,
		MasterAgentID: resp.MergedDocument.MasterAgentID,
		Sources:       resp.MergedDocument.Sources,
		Document:      resp.MergedDocument.Content,
		Metadata:      resp.Metadata,
		Deadline:      resp.DeadlineInfo,
		SubmissionURL: resp.SubmissionURL,
		Warnings:      resp.Warnings,
		Error:         resp.Error,
	}
	if exp.Sources == nil {
		exp.Sources = []string{}
	}

	metaStatus := make(map[string]orchestrator.AgentStatus, len(resp.MetadataResults))
	for _, r := range resp.MetadataResults {
		metaStatus[r.AgentID] = r.Status
	}
	exp.Agents = make([]AgentExport, 0, len(resp.AgentResults))
	for _, r := range resp.AgentResults {
		exp.Agents = append(exp.Agents, AgentExport{
			ID:         r.AgentID,
			Label:      r.Label,
			Metadata:   string(metaStatus[r.AgentID]),
			Draft:      string(r.Status),
			Error:      r.Error,
			DurationMS: r.DurationMS,
		})
	}
	return exp
}

// WriteBundle writes the document, the JSON export and the instructions into
// dir, creating it if needed. It returns the written paths.
func WriteBundle(dir string, resp *orchestrator.Response, at time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}

	docx, err := render.DOCX(resp.MergedDocument.Content, resp.Instructions)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	data, err := json.MarshalIndent(BuildExport(resp, at), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal: %w", err)
	}

	var written []string
	for _, f := range []struct {
		name string
		data []byte
	}{
		{DocumentFile, docx},
		{ResponseFile, append(data, '\n')},
		{InstructionsFile, []byte(resp.Instructions + "\n")},
	} {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("export: write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
