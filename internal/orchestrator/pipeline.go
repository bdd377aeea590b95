package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/prompts"
	"github.com/dusk-indust/appealdraft/internal/provider"
	"github.com/dusk-indust/appealdraft/internal/textextract"
	"github.com/dusk-indust/appealdraft/internal/tracer"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// ErrNoVisionAgent is returned when the fine is only readable as an image
// and no runnable agent accepts images.
var ErrNoVisionAgent = errors.New("the document needs a vision-capable agent")

// scannedPlaceholder replaces the fine text when a PDF without a text layer
// is sent to vision agents.
const scannedPlaceholder = "[El documento es un PDF escaneado sin texto extraíble. Se ha adjuntado el archivo original para su lectura.]"

// File is an uploaded document.
type File struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// SupportFile is an auxiliary document with the user's explanation of it.
type SupportFile struct {
	File
	Context string `json:"context,omitempty"`
}

// Request is one appeal to draft.
type Request struct {
	// Fine is the uploaded notice. FineText may be given instead.
	Fine     File
	FineText string

	SupportFiles      []SupportFile
	AdditionalContext string

	// Agents overrides the registry for this request and may carry
	// client-held credentials.
	Agents []agent.Override

	// Strategy overrides the configured merge strategy when valid.
	Strategy MergeStrategy
}

// Response is the aggregate result of a Run.
type Response struct {
	RequestID       string                 `json:"requestId"`
	AgentResults    []AgentResult          `json:"agentResults"`
	MetadataResults []AgentResult          `json:"metadataResults"`
	MergedDocument  MergedDocument         `json:"mergedDocument"`
	MergeStrategy   MergeStrategy          `json:"mergeStrategy"`
	Instructions    string                 `json:"instructions"`
	Metadata        FineMetadata           `json:"metadata"`
	DeadlineInfo    *deadline.Info         `json:"deadlineInfo,omitempty"`
	SubmissionURL   *SubmissionURLProposal `json:"submissionUrl,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

// Pipeline sequences text extraction, metadata extraction, drafting,
// merging and deadline computation for one request.
type Pipeline struct {
	cfg       Config
	registry  *agent.Registry
	creds     agent.CredentialSource
	deadlines *deadline.Calculator
	logger    *zap.Logger
	progress  *ProgressReporter

	extractor *MetadataExtractor
	generator *DraftGenerator
	master    *MasterMerger

	now func() time.Time
}

// NewPipeline wires the phases over adapter. creds may be nil when every
// request carries client-held credentials.
func NewPipeline(cfg Config, registry *agent.Registry, creds agent.CredentialSource, adapter provider.Adapter, deadlines *deadline.Calculator, logger *zap.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if deadlines == nil {
		deadlines = deadline.NewCalculator(deadline.DefaultRules())
	}
	progress := NewProgressReporter()
	fanout := NewFanOut(adapter, FanOutConfig{CallTimeout: cfg.CallTimeout, Concurrency: cfg.Concurrency}, logger, progress.Emit)

	return &Pipeline{
		cfg:       cfg,
		registry:  registry,
		creds:     creds,
		deadlines: deadlines,
		logger:    logger,
		progress:  progress,
		extractor: NewMetadataExtractor(fanout),
		generator: NewDraftGenerator(fanout),
		master:    NewMasterMerger(adapter, cfg.CallTimeout, logger),
		now:       time.Now,
	}
}

// Registry returns the base agent registry.
func (p *Pipeline) Registry() *agent.Registry { return p.registry }

// Progress subscribes to the progress events of every request run from
// now on. The channel is closed by Close.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close closes every progress subscription.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// NewRequestID returns a lexically sortable request id.
func NewRequestID() string {
	return ulid.Make().String()
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run processes one fine. Per-agent failures are reported in the response,
// never returned. The returned error is set for whole-request failures:
// invalid overrides, ErrNoAgents, unreadable input, and ErrNoValidDrafts.
// For ErrNoAgents and ErrNoValidDrafts the response is still returned so
// callers can show every agent's outcome.
func (p *Pipeline) Run(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	requestID := NewRequestID()
	ctx, span := tracer.StartSpan(ctx, "pipeline.run", tracer.StringAttr("request_id", requestID))
	defer func() { tracer.End(span, err) }()

	log := p.logger.With(zap.String("request_id", requestID))
	start := time.Now()

	registry := p.registry
	if len(req.Agents) > 0 {
		registry, err = registry.WithOverrides(req.Agents)
		if err != nil {
			return nil, fmt.Errorf("pipeline: agent overrides: %w", err)
		}
	}
	clientCreds := agent.ClientCredentials(req.Agents)
	sel := registry.Select(ctx, p.creds, clientCreds)

	resp = &Response{
		RequestID:      requestID,
		Metadata:       EmptyMetadata(),
		MergedDocument: MergedDocument{Content: NoDraftMessage, Strategy: MergeNone, Sources: []string{}},
	}
	if len(sel.Runnable) == 0 {
		resp.AgentResults = failAll(sel, ErrNoAgents)
		resp.Error = ErrNoAgents.Error()
		log.Error("no runnable agents", zap.Int("skipped", len(sel.Skipped)))
		return resp, ErrNoAgents
	}

	in, err := p.prepareInput(req, sel)
	if err != nil {
		log.Error("input preparation failed", zap.Error(err))
		return nil, err
	}
	if len(in.image) > 0 {
		sel = sel.WithVision(in.imageMIME)
		log.Info("document only readable as an attachment",
			zap.String("mime", in.imageMIME),
			zap.Int("vision_agents", len(sel.Runnable)),
		)
	}

	// Metadata phase. Failures leave the metadata empty and drafting proceeds.
	phaseCtx, phaseCancel := p.phase(ctx, PhaseMetadata, p.cfg.MetadataTimeout)
	meta, metaResults := p.extractor.Extract(phaseCtx, requestID, sel, in.fine, in.image, in.imageMIME)
	phaseCancel(nil)
	resp.Metadata = meta
	resp.MetadataResults = metaResults
	log.Info("metadata phase done",
		zap.Int("agents", len(sel.Runnable)),
		zap.Int("succeeded", countStatus(metaResults, StatusDone)),
		zap.Bool("empty", meta.IsEmpty()),
	)

	// Draft phase.
	phaseCtx, phaseCancel = p.phase(ctx, PhaseDraft, p.cfg.DraftTimeout)
	var enrich *FineMetadata
	if !meta.IsEmpty() {
		enrich = &meta
	}
	drafts := p.generator.GenerateDrafts(phaseCtx, requestID, sel, in.fine, in.image, in.imageMIME, enrich)
	phaseCancel(nil)
	resp.AgentResults = drafts
	log.Info("draft phase done", zap.Int("succeeded", countStatus(drafts, StatusDone)))

	// Merge phase.
	strategy := p.cfg.Strategy
	if req.Strategy.Valid() {
		strategy = req.Strategy
	}
	merger := NewMerger(strategy, p.master, p.logger)
	phaseCtx, phaseCancel = p.phase(ctx, PhaseMerge, p.cfg.MergeTimeout)
	var masters []agent.Bound
	if strategy == MergeMaster {
		masters = p.masters(phaseCtx, registry, clientCreds, log)
	}
	inputs := DraftsFrom(drafts)
	resp.MergedDocument = merger.Merge(phaseCtx, requestID, inputs, masters)
	phaseCancel(nil)
	resp.MergeStrategy = resp.MergedDocument.Strategy

	// Coherence check (log issues, do not block).
	for _, issue := range CheckCoherence(inputs, meta) {
		log.Warn("coherence issue", zap.String("agent", issue.AgentID), zap.String("reference", issue.Reference))
		resp.Warnings = append(resp.Warnings, issue.Description)
	}

	resp.DeadlineInfo = p.deadlines.ComputeAt(deadlineText(meta, in.fine.FineText), p.now())
	resp.SubmissionURL = BestProposal(drafts)
	resp.Instructions = BuildInstructions(meta, resp.DeadlineInfo, resp.SubmissionURL)

	log.Info("pipeline done",
		zap.String("strategy", string(resp.MergeStrategy)),
		zap.Bool("valid", resp.MergedDocument.Valid),
		zap.Duration("elapsed", time.Since(start)),
	)
	if !resp.MergedDocument.Valid {
		resp.Error = ErrNoValidDrafts.Error()
		return resp, ErrNoValidDrafts
	}
	return resp, nil
}

// phase derives a context bounded by budget and opens a phase span. The
// returned func ends both.
func (p *Pipeline) phase(ctx context.Context, ph Phase, budget time.Duration) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	ctx, span := tracer.StartSpan(ctx, "pipeline.phase", tracer.StringAttr("phase", string(ph)))
	return ctx, func(err error) {
		tracer.End(span, err)
		cancel()
	}
}

// masters binds the designated merge agents that have a credential.
func (p *Pipeline) masters(ctx context.Context, registry *agent.Registry, clientCreds map[string]string, log *zap.Logger) []agent.Bound {
	var out []agent.Bound
	for _, id := range []string{p.cfg.MasterAgentID, p.cfg.SecondaryMasterAgentID} {
		if id == "" {
			continue
		}
		b, err := registry.Bind(ctx, id, p.creds, clientCreds)
		if err != nil {
			log.Warn("master agent unavailable", zap.String("agent", id), zap.Error(err))
			continue
		}
		out = append(out, b)
	}
	return out
}

// ---------------------------------------------------------------------------
// Input preparation
// ---------------------------------------------------------------------------

type preparedInput struct {
	fine      prompts.Fine
	image     []byte
	imageMIME string
}

func (p *Pipeline) prepareInput(req Request, sel agent.Selection) (preparedInput, error) {
	in := preparedInput{fine: prompts.Fine{AdditionalContext: strings.TrimSpace(req.AdditionalContext)}}

	switch {
	case len(req.Fine.Data) > 0:
		ex, err := textextract.Extract(req.Fine.Data, req.Fine.MIMEType)
		switch {
		case err == nil && ex.IsImage:
			if !sel.HasVision(ex.MIME) {
				return in, fmt.Errorf("pipeline: %s is an image: %w", req.Fine.Name, ErrNoVisionAgent)
			}
			in.image, in.imageMIME = req.Fine.Data, ex.MIME
		case err == nil:
			in.fine.FineText = ex.Text
		case ex.MIME == "application/pdf" && (errors.Is(err, textextract.ErrNoTextLayer) || errors.Is(err, textextract.ErrUnreadable)):
			if !sel.HasVision(ex.MIME) {
				return in, fmt.Errorf("pipeline: %s: %w: %w", req.Fine.Name, err, ErrNoVisionAgent)
			}
			p.logger.Warn("pdf has no usable text layer, sending it to vision agents", zap.String("file", req.Fine.Name), zap.Error(err))
			in.fine.FineText = scannedPlaceholder
			in.image, in.imageMIME = req.Fine.Data, ex.MIME
		default:
			return in, fmt.Errorf("pipeline: %s: %w", req.Fine.Name, err)
		}
	case strings.TrimSpace(req.FineText) != "":
		in.fine.FineText = strings.TrimSpace(req.FineText)
	default:
		return in, ErrNoInput
	}

	for _, sf := range req.SupportFiles {
		text := ""
		if len(sf.Data) > 0 {
			if ex, err := textextract.Extract(sf.Data, sf.MIMEType); err == nil {
				text = ex.Text
			} else {
				p.logger.Debug("support file has no text", zap.String("file", sf.Name), zap.Error(err))
			}
		}
		in.fine.SupportFiles = append(in.fine.SupportFiles, prompts.SupportFile{Name: sf.Name, Context: sf.Context, Text: text})
	}
	return in, nil
}

// deadlineText joins the sources a notification date can be found in, best
// first.
func deadlineText(meta FineMetadata, fineText string) string {
	return strings.Join([]string{meta.Deadline, meta.RawSummary, fineText}, "\n")
}

func countStatus(results []AgentResult, s AgentStatus) int {
	n := 0
	for _, r := range results {
		if r.Status == s {
			n++
		}
	}
	return n
}
