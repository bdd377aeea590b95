package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/prompts"
	"github.com/dusk-indust/appealdraft/internal/provider"
	"github.com/dusk-indust/appealdraft/internal/tracer"
)

// errShortFusion marks a master reply at or under the noise threshold.
var errShortFusion = errors.New("fused document is below the minimum length")

// MasterMerger fuses drafts through a designated agent, falling back to the
// next designated agent and finally to HeuristicMerge.
type MasterMerger struct {
	adapter     provider.Adapter
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewMasterMerger creates a MasterMerger. callTimeout bounds each master
// call; zero leaves only the caller's context.
func NewMasterMerger(adapter provider.Adapter, callTimeout time.Duration, logger *zap.Logger) *MasterMerger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterMerger{adapter: adapter, callTimeout: callTimeout, logger: logger}
}

// Merge returns the single qualifying draft verbatim without a call. With
// several, masters are tried in order; the heuristic merge is used when all
// of them fail or none is available.
func (m *MasterMerger) Merge(ctx context.Context, requestID string, drafts []Draft, masters []agent.Bound) MergedDocument {
	q := qualifying(drafts)
	if len(q) < 2 {
		return HeuristicMerge(drafts)
	}
	log := m.logger.With(zap.String("request_id", requestID))
	if len(masters) == 0 {
		log.Warn("no master agent available, using heuristic merge")
		return HeuristicMerge(drafts)
	}

	system, err := prompts.FusionSystem()
	if err != nil {
		log.Error("render fusion prompt", zap.Error(err))
		return HeuristicMerge(drafts)
	}
	inputs := make([]prompts.Draft, len(q))
	sources := make([]string, len(q))
	for i, d := range q {
		inputs[i] = prompts.Draft{Label: d.AgentLabel, Content: d.Content}
		sources[i] = d.AgentID
	}
	user, err := prompts.FusionUser(inputs)
	if err != nil {
		log.Error("render fusion prompt", zap.Error(err))
		return HeuristicMerge(drafts)
	}
	req := provider.Request{SystemPrompt: system, UserPrompt: user}

	type fused struct {
		agentID string
		content string
	}
	out, err := provider.TryInOrder(ctx, masters, func(error) bool { return true },
		func(ctx context.Context, b agent.Bound) (fused, error) {
			content, err := m.call(ctx, b, req)
			if err != nil {
				log.Warn("master merge failed", zap.String("agent", b.Identity.ID), zap.Error(err))
				return fused{}, fmt.Errorf("%s: %w", b.Identity.ID, err)
			}
			return fused{agentID: b.Identity.ID, content: content}, nil
		})
	if err != nil {
		log.Warn("all master agents failed, using heuristic merge", zap.Error(err))
		return HeuristicMerge(drafts)
	}

	return MergedDocument{
		Content:       out.content,
		Strategy:      MergeMaster,
		MasterAgentID: out.agentID,
		Sources:       sources,
		Valid:         true,
	}
}

func (m *MasterMerger) call(ctx context.Context, b agent.Bound, req provider.Request) (content string, err error) {
	ctx, span := tracer.StartSpan(ctx, "pipeline.master_merge", tracer.StringAttr("agent", b.Identity.ID))
	defer func() { tracer.End(span, err) }()

	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	id := b.Identity
	opts := provider.CallOptions{MaxTokens: id.MaxTokens, Temperature: id.Temperature}
	out, err := provider.CallWithModelFallback(ctx, m.adapter, id, b.Credential, req, opts)
	if err != nil {
		return "", err
	}
	out, _ = StripSubmissionSidecar(out)
	if !isSubstantial(out) {
		return "", errShortFusion
	}
	return strings.TrimSpace(out), nil
}
