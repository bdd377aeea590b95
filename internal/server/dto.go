package server

import (
	"time"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
)

type fileDTO struct {
	Name     string `json:"name,omitempty" example:"multa.pdf"`
	MIMEType string `json:"mimeType,omitempty" example:"application/pdf"`
	Data     []byte `json:"data" doc:"Base64-encoded file content"`
}

type supportFileDTO struct {
	fileDTO
	Context string `json:"context,omitempty" doc:"What the document proves"`
}

type appealRequestDTO struct {
	File              *fileDTO         `json:"file,omitempty" doc:"The fine notice. Either file or fineText is required."`
	FineText          string           `json:"fineText,omitempty" doc:"Plain text of the fine notice"`
	SupportFiles      []supportFileDTO `json:"supportFiles,omitempty"`
	AdditionalContext string           `json:"additionalContext,omitempty" doc:"The user's own account and arguments"`
	Agents            []agent.Override `json:"agents,omitempty" doc:"Per-request agent overrides, optionally with apiKey"`
	Strategy          string           `json:"strategy,omitempty" doc:"heuristic or master"`
}

func (d *appealRequestDTO) toRequest() orchestrator.Request {
	req := orchestrator.Request{
		FineText:          d.FineText,
		AdditionalContext: d.AdditionalContext,
		Agents:            d.Agents,
		Strategy:          orchestrator.MergeStrategy(d.Strategy),
	}
	if d.File != nil {
		req.Fine = orchestrator.File{Name: d.File.Name, MIMEType: d.File.MIMEType, Data: d.File.Data}
	}
	for _, sf := range d.SupportFiles {
		req.SupportFiles = append(req.SupportFiles, orchestrator.SupportFile{
			File:    orchestrator.File{Name: sf.Name, MIMEType: sf.MIMEType, Data: sf.Data},
			Context: sf.Context,
		})
	}
	return req
}

type agentDTO struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Provider      agent.Provider `json:"provider"`
	Model         string         `json:"model"`
	Role          string         `json:"role,omitempty"`
	Color         string         `json:"color,omitempty"`
	Vision        bool           `json:"vision"`
	Enabled       bool           `json:"enabled"`
	CredentialKey string         `json:"credentialKey,omitempty"`
	Configured    bool           `json:"configured" doc:"A central credential is available"`
}

type deadlineRequestDTO struct {
	Text  string `json:"text" minLength:"1" doc:"Fine text or extracted summary containing the notification date"`
	Today string `json:"today,omitempty" doc:"Reference date (YYYY-MM-DD); defaults to the server's date"`
}

func (d *deadlineRequestDTO) today(now time.Time) (time.Time, bool) {
	if d.Today == "" {
		return now, true
	}
	t, err := time.Parse("2006-01-02", d.Today)
	return t, err == nil
}

type deadlineResponseDTO struct {
	Deadline *deadline.Info `json:"deadline" doc:"Null when no notification date was found"`
}
