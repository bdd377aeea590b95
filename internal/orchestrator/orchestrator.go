package orchestrator

import (
	"context"
	"errors"
)

// Phase identifies a fan-out step of the pipeline.
type Phase string

const (
	PhaseMetadata Phase = "metadata"
	PhaseDraft    Phase = "draft"
	PhaseMerge    Phase = "merge"
)

// AgentStatus is the lifecycle state of one agent within one phase.
type AgentStatus string

const (
	StatusPending AgentStatus = "pending"
	StatusRunning AgentStatus = "running"
	StatusDone    AgentStatus = "done"
	StatusError   AgentStatus = "error"
	StatusSkipped AgentStatus = "skipped"
)

// Terminal reports whether s is a final state.
func (s AgentStatus) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusSkipped
}

func (s AgentStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusDone, StatusError, StatusSkipped:
		return 2
	default:
		return -1
	}
}

// Orchestration-level failures.
var (
	ErrNoAgents      = errors.New("no agent is enabled with a credential")
	ErrNoValidDrafts = errors.New("no draft exceeded the minimum length")
	ErrNoInput       = errors.New("no fine text or image to process")
)

// AgentResult is the outcome of one agent in one phase.
type AgentResult struct {
	AgentID       string                 `json:"agentId"`
	Label         string                 `json:"label"`
	Status        AgentStatus            `json:"status"`
	Content       string                 `json:"content,omitempty"`
	Error         string                 `json:"error,omitempty"`
	SubmissionURL *SubmissionURLProposal `json:"submissionUrl,omitempty"`
	DurationMS    int64                  `json:"durationMs,omitempty"`
}

// advance moves r to next. Terminal states never change and running is
// never re-entered.
func (r *AgentResult) advance(next AgentStatus) bool {
	cur, nxt := r.Status.rank(), next.rank()
	if nxt < 0 || cur >= 2 || nxt <= cur {
		return false
	}
	if next == StatusSkipped && r.Status != StatusPending {
		return false
	}
	r.Status = next
	return true
}

// ProgressEvent is emitted as agents move through a phase.
type ProgressEvent struct {
	RequestID string
	Phase     Phase
	AgentID   string
	Status    AgentStatus
	Message   string
}

// Orchestrator runs the appeal pipeline for one request at a time per call.
type Orchestrator interface {
	// Run processes one fine end to end.
	Run(ctx context.Context, req Request) (*Response, error)

	// Progress subscribes to per-agent progress events.
	Progress() <-chan ProgressEvent
}
