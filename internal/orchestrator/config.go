package orchestrator

import (
	"time"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

// Config holds runtime configuration for the pipeline.
type Config struct {
	// Strategy selects the merge strategy.
	Strategy MergeStrategy

	// MasterAgentID and SecondaryMasterAgentID are tried in order by the
	// master strategy.
	MasterAgentID          string
	SecondaryMasterAgentID string

	// RequestTimeout bounds a whole Run.
	RequestTimeout time.Duration

	// Phase budgets. Each phase waits at most this long for its slowest agent.
	MetadataTimeout time.Duration
	DraftTimeout    time.Duration
	MergeTimeout    time.Duration

	// CallTimeout bounds a single agent call within a phase.
	CallTimeout time.Duration

	// Concurrency caps in-flight calls per phase. Zero means unbounded.
	Concurrency int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:               MergeHeuristic,
		MasterAgentID:          agent.IDGPT,
		SecondaryMasterAgentID: agent.IDGemini,
		RequestTimeout:         120 * time.Second,
		MetadataTimeout:        35 * time.Second,
		DraftTimeout:           60 * time.Second,
		MergeTimeout:           25 * time.Second,
		CallTimeout:            55 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if !c.Strategy.Valid() {
		c.Strategy = d.Strategy
	}
	if c.MasterAgentID == "" {
		c.MasterAgentID = d.MasterAgentID
	}
	if c.SecondaryMasterAgentID == "" {
		c.SecondaryMasterAgentID = d.SecondaryMasterAgentID
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.MetadataTimeout <= 0 {
		c.MetadataTimeout = d.MetadataTimeout
	}
	if c.DraftTimeout <= 0 {
		c.DraftTimeout = d.DraftTimeout
	}
	if c.MergeTimeout <= 0 {
		c.MergeTimeout = d.MergeTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	return c
}
