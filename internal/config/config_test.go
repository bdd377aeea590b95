package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	yml := `
logging:
  level: debug
  format: console
server:
  addr: ":9090"
pipeline:
  strategy: master
  masterAgent: gemini
  draftTimeout: 90s
  concurrency: 3
agents:
  - id: deepseek
    enabled: false
  - id: mistral
    provider: openai
    model: mistral-large
    baseUrl: https://api.mistral.ai/v1
    credentialKey: MISTRAL_API_KEY
resilience:
  breaker: true
  perMinute: 30
deadline:
  allegationDays: 15
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appealdraft.yaml"), []byte(yml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 20, cfg.Server.MaxUploadMB, "unset fields keep defaults")
	assert.Equal(t, 15, cfg.Deadline.AllegationDays)
	assert.Equal(t, 1, cfg.Deadline.RepositionMonths)
	assert.True(t, cfg.Resilience.Breaker)

	oc := cfg.Orchestrator()
	assert.Equal(t, orchestrator.MergeMaster, oc.Strategy)
	assert.Equal(t, agent.IDGemini, oc.MasterAgentID)
	assert.Equal(t, agent.IDGemini, oc.SecondaryMasterAgentID)
	assert.Equal(t, 90*time.Second, oc.DraftTimeout)
	assert.Equal(t, 3, oc.Concurrency)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	ds, err := reg.Resolve(agent.IDDeepSeek)
	require.NoError(t, err)
	assert.False(t, ds.Enabled)
	m, err := reg.Resolve("mistral")
	require.NoError(t, err)
	assert.Equal(t, "MISTRAL_API_KEY", m.CredentialKey)
}

func TestLoad_PrefersYML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appealdraft.yml"), []byte("server:\n  addr: \":1\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appealdraft.yaml"), []byte("server:\n  addr: \":2\"\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":1", cfg.Server.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appealdraft.yml"), []byte("pipeline: [unclosed"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Strategy = "vote"
	cfg.Pipeline.CallTimeout = -time.Second
	cfg.Logging.Format = "xml"
	cfg.Tracing.Exporter = "jaeger"
	cfg.Agents = []agent.Override{{ID: "unknown"}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"pipeline.strategy", "pipeline.callTimeout", "logging.format", "tracing.exporter", "agents:"} {
		assert.Contains(t, err.Error(), want)
	}
}
