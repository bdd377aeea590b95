package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/logging"
	"github.com/dusk-indust/appealdraft/internal/provider"
)

// Call is a single unit of work for one agent in a phase.
type Call struct {
	Agent   agent.Bound
	Request provider.Request

	// Finish, when set, stores out on res. An error turns the result into
	// an error result.
	Finish func(out string, res *AgentResult) error
}

// FanOutConfig bounds each call and the phase's parallelism.
type FanOutConfig struct {
	// CallTimeout caps one agent call, fallback models included. Zero
	// leaves only the caller's context.
	CallTimeout time.Duration

	// Concurrency caps in-flight calls. Zero or negative means unbounded.
	Concurrency int
}

// FanOut dispatches calls to agents in parallel and collects every outcome.
// A failing agent never cancels its siblings.
type FanOut struct {
	adapter    provider.Adapter
	cfg        FanOutConfig
	logger     *zap.Logger
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut that calls agents through adapter.
// onProgress is called synchronously from each goroutine; it may be nil.
func NewFanOut(adapter provider.Adapter, cfg FanOutConfig, logger *zap.Logger, onProgress func(ProgressEvent)) *FanOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{
		adapter:    adapter,
		cfg:        cfg,
		logger:     logger,
		onProgress: onProgress,
	}
}

// Run issues every call and waits for all of them to settle. The result
// slice holds one entry per call in input order, followed by one skipped
// entry per skipped agent. Every entry is terminal when Run returns.
func (f *FanOut) Run(ctx context.Context, requestID string, phase Phase, calls []Call, skipped []agent.Skipped) []AgentResult {
	results := make([]AgentResult, len(calls), len(calls)+len(skipped))
	for i, c := range calls {
		results[i] = AgentResult{
			AgentID: c.Agent.Identity.ID,
			Label:   c.Agent.Identity.Label,
			Status:  StatusPending,
		}
		f.emit(ProgressEvent{RequestID: requestID, Phase: phase, AgentID: c.Agent.Identity.ID, Status: StatusPending})
	}

	var g errgroup.Group
	if f.cfg.Concurrency > 0 {
		g.SetLimit(f.cfg.Concurrency)
	}

	for i, c := range calls {
		g.Go(func() error {
			f.runOne(ctx, requestID, phase, c, &results[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range skipped {
		r := AgentResult{AgentID: s.Identity.ID, Label: s.Identity.Label, Status: StatusPending}
		r.advance(StatusSkipped)
		r.Error = s.Reason
		results = append(results, r)
		f.emit(ProgressEvent{RequestID: requestID, Phase: phase, AgentID: s.Identity.ID, Status: StatusSkipped, Message: s.Reason})
	}
	return results
}

func (f *FanOut) runOne(ctx context.Context, requestID string, phase Phase, c Call, res *AgentResult) {
	id := c.Agent.Identity
	log := f.logger.With(
		zap.String("request_id", requestID),
		zap.String("phase", string(phase)),
		zap.String("agent", id.ID),
	)

	res.advance(StatusRunning)
	f.emit(ProgressEvent{RequestID: requestID, Phase: phase, AgentID: id.ID, Status: StatusRunning})

	callCtx := ctx
	if f.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	opts := provider.CallOptions{MaxTokens: id.MaxTokens, Temperature: id.Temperature}
	out, err := provider.CallWithModelFallback(callCtx, f.adapter, id, c.Agent.Credential, c.Request, opts)
	res.DurationMS = time.Since(start).Milliseconds()

	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err == nil {
		if c.Finish != nil {
			err = c.Finish(out, res)
		} else {
			res.Content = out
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", f.cfg.CallTimeout, err)
		}
		res.advance(StatusError)
		res.Content = ""
		res.SubmissionURL = nil
		res.Error = err.Error()
		log.Warn("agent call failed", zap.Error(err), zap.Int64("duration_ms", res.DurationMS))
		f.emit(ProgressEvent{RequestID: requestID, Phase: phase, AgentID: id.ID, Status: StatusError, Message: res.Error})
		return
	}

	res.advance(StatusDone)
	log.Debug("agent call done",
		zap.Int64("duration_ms", res.DurationMS),
		zap.String("content", logging.Truncate(out, logging.MaxLoggedText)),
	)
	f.emit(ProgressEvent{RequestID: requestID, Phase: phase, AgentID: id.ID, Status: StatusDone})
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
