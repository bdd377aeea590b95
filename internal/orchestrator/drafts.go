package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/prompts"
	"github.com/dusk-indust/appealdraft/internal/provider"
)

// DraftGenerator runs the appeal-writing prompt across agents.
type DraftGenerator struct {
	fanout *FanOut
}

// NewDraftGenerator creates a generator over fanout.
func NewDraftGenerator(fanout *FanOut) *DraftGenerator {
	return &DraftGenerator{fanout: fanout}
}

// GenerateDrafts asks every runnable agent for a draft. Each agent's system
// prompt carries its role and, when meta has data, the organism, legislation
// and deadline. Sidecar tokens are stripped from each draft and surfaced as
// SubmissionURL.
func (g *DraftGenerator) GenerateDrafts(ctx context.Context, requestID string, sel agent.Selection, fine prompts.Fine, image []byte, imageMIME string, meta *FineMetadata) []AgentResult {
	user, err := prompts.DraftUser(fine)
	if err != nil {
		return failAll(sel, err)
	}

	base := prompts.DraftContext{}
	if meta != nil {
		base.Organism = meta.Organism
		base.Legislation = meta.Legislation
		base.Deadline = meta.Deadline
	}

	calls := make([]Call, 0, len(sel.Runnable))
	var failed []AgentResult
	for _, b := range sel.Runnable {
		dc := base
		dc.Role = b.Identity.Role
		system, err := prompts.DraftSystem(dc)
		if err != nil {
			failed = append(failed, AgentResult{AgentID: b.Identity.ID, Label: b.Identity.Label, Status: StatusError, Error: err.Error()})
			continue
		}
		calls = append(calls, Call{
			Agent: b,
			Request: provider.Request{
				SystemPrompt: system,
				UserPrompt:   user,
				Image:        image,
				ImageMIME:    imageMIME,
				RequireImage: len(image) > 0,
			},
			Finish: finishDraft,
		})
	}

	results := g.fanout.Run(ctx, requestID, PhaseDraft, calls, sel.Skipped)
	if len(failed) > 0 {
		results = append(failed, results...)
	}
	return results
}

func finishDraft(out string, res *AgentResult) error {
	visible, proposal := StripSubmissionSidecar(out)
	if strings.TrimSpace(visible) == "" {
		return fmt.Errorf("draft contains only a submission sidecar: %w", provider.ErrEmptyResponse)
	}
	res.Content = visible
	res.SubmissionURL = proposal
	return nil
}

// DraftsFrom returns the done results as merge inputs.
func DraftsFrom(results []AgentResult) []Draft {
	var drafts []Draft
	for _, r := range results {
		if r.Status == StatusDone {
			drafts = append(drafts, Draft{AgentID: r.AgentID, AgentLabel: r.Label, Content: r.Content})
		}
	}
	return drafts
}
