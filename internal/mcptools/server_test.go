package mcptools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/export"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
)

// mockOrchestrator records the last request and replies with a fixed response.
type mockOrchestrator struct {
	resp *orchestrator.Response
	err  error
	got  orchestrator.Request
}

func (m *mockOrchestrator) Run(_ context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	m.got = req
	return m.resp, m.err
}

func (m *mockOrchestrator) Progress() <-chan orchestrator.ProgressEvent { return nil }

type mapCreds map[string]string

func (m mapCreds) Credential(_ context.Context, key string) (string, error) { return m[key], nil }

func okResponse() *orchestrator.Response {
	return &orchestrator.Response{
		RequestID: "01JABCDEFGHJKMNPQRSTVWXYZ0",
		AgentResults: []orchestrator.AgentResult{
			{AgentID: "gpt", Status: orchestrator.StatusDone, Content: "borrador"},
			{AgentID: "gemini", Status: orchestrator.StatusError, Error: "HTTP 500"},
		},
		MergedDocument: orchestrator.MergedDocument{
			Content:  "A LA JEFATURA PROVINCIAL DE TRÁFICO\n\nSOLICITA: el archivo.",
			Strategy: orchestrator.MergeSingle,
			Sources:  []string{"gpt"},
			Valid:    true,
		},
		MergeStrategy: orchestrator.MergeSingle,
		Instructions:  "Presente el escrito en la sede electrónica.",
	}
}

// connect starts svc on an in-memory transport and returns a client session.
func connect(t *testing.T, svc *AppealService) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewAppealMCPServer(svc)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func newService(orch orchestrator.Orchestrator) *AppealService {
	svc := NewAppealService(orch, agent.DefaultRegistry(), mapCreds{}, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) }
	return svc
}

func callTool[T any](t *testing.T, cs *mcp.ClientSession, name string, args any) (*mcp.CallToolResult, T) {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	var out T
	if result.StructuredContent != nil {
		raw, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return result, out
}

func TestMCPServer_ListTools(t *testing.T) {
	cs := connect(t, newService(&mockOrchestrator{}))

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"compute_deadline", "draft_appeal", "list_agents"}, names)
}

func TestDraftAppeal_FromText(t *testing.T) {
	orch := &mockOrchestrator{resp: okResponse()}
	cs := connect(t, newService(orch))

	result, out := callTool[DraftAppealOutput](t, cs, "draft_appeal", map[string]any{
		"fineText":          "Boletín de denuncia 123",
		"additionalContext": "No conducía yo.",
		"strategy":          "master",
	})
	require.False(t, result.IsError)

	assert.Equal(t, "Boletín de denuncia 123", orch.got.FineText)
	assert.Equal(t, "No conducía yo.", orch.got.AdditionalContext)
	assert.Equal(t, orchestrator.MergeMaster, orch.got.Strategy)

	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "01JABCDEFGHJKMNPQRSTVWXYZ0", out.RequestID)
	assert.Contains(t, out.Document, "SOLICITA")
	assert.Equal(t, "single", out.Strategy)
	assert.Equal(t, []AgentOutcome{
		{ID: "gpt", Status: "done"},
		{ID: "gemini", Status: "error", Error: "HTTP 500"},
	}, out.Agents)
	assert.Empty(t, out.FilesWritten)
}

func TestDraftAppeal_ReadsFilesAndWritesBundle(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "multa.PDF")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))
	photo := filepath.Join(dir, "señal.jpg")
	require.NoError(t, os.WriteFile(photo, []byte{0xFF, 0xD8, 0xFF}, 0o644))
	outDir := filepath.Join(dir, "out")

	orch := &mockOrchestrator{resp: okResponse()}
	cs := connect(t, newService(orch))

	_, out := callTool[DraftAppealOutput](t, cs, "draft_appeal", map[string]any{
		"filePath":     pdfPath,
		"supportFiles": []map[string]string{{"path": photo, "context": "señal tapada"}},
		"outputDir":    outDir,
	})

	assert.Equal(t, "multa.PDF", orch.got.Fine.Name)
	assert.Equal(t, "application/pdf", orch.got.Fine.MIMEType)
	require.Len(t, orch.got.SupportFiles, 1)
	assert.Equal(t, "image/jpeg", orch.got.SupportFiles[0].File.MIMEType)
	assert.Equal(t, "señal tapada", orch.got.SupportFiles[0].Context)

	assert.Equal(t, "completed", out.Status)
	require.Len(t, out.FilesWritten, 3)
	for _, name := range []string{export.DocumentFile, export.ResponseFile, export.InstructionsFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestDraftAppeal_PipelineFailure(t *testing.T) {
	resp := okResponse()
	resp.MergedDocument = orchestrator.MergedDocument{Content: orchestrator.NoDraftMessage, Strategy: orchestrator.MergeNone, Sources: []string{}}
	resp.Error = orchestrator.ErrNoValidDrafts.Error()
	orch := &mockOrchestrator{resp: resp, err: orchestrator.ErrNoValidDrafts}
	cs := connect(t, newService(orch))

	result, out := callTool[DraftAppealOutput](t, cs, "draft_appeal", map[string]any{"fineText": "multa"})
	assert.False(t, result.IsError)
	assert.Equal(t, "failed", out.Status)
	assert.Equal(t, orchestrator.ErrNoValidDrafts.Error(), out.Message)
	assert.Len(t, out.Agents, 2)
}

func TestDraftAppeal_RejectedBeforeAgents(t *testing.T) {
	orch := &mockOrchestrator{err: orchestrator.ErrNoAgents}
	cs := connect(t, newService(orch))

	_, out := callTool[DraftAppealOutput](t, cs, "draft_appeal", map[string]any{"fineText": "multa"})
	assert.Equal(t, "failed", out.Status)
	assert.Equal(t, orchestrator.ErrNoAgents.Error(), out.Message)
	assert.Empty(t, out.Agents)
}

func TestDraftAppeal_InvalidInput(t *testing.T) {
	svc := newService(&mockOrchestrator{resp: okResponse()})

	_, _, err := svc.DraftAppeal(context.Background(), nil, DraftAppealInput{})
	assert.Error(t, err)

	_, _, err = svc.DraftAppeal(context.Background(), nil, DraftAppealInput{FilePath: filepath.Join(t.TempDir(), "missing.pdf")})
	assert.Error(t, err)
}

func TestComputeDeadline(t *testing.T) {
	cs := connect(t, newService(&mockOrchestrator{}))

	_, out := callTool[ComputeDeadlineOutput](t, cs, "compute_deadline", map[string]any{
		"text": "Fecha de notificación: 10/01/2025",
	})
	require.True(t, out.Found)
	require.NotNil(t, out.Deadline)
	assert.Equal(t, "10/02/2025", out.Deadline.DueDate)
	assert.Equal(t, 21, out.Deadline.DaysRemaining)

	_, out = callTool[ComputeDeadlineOutput](t, cs, "compute_deadline", map[string]any{
		"text":  "Fecha de notificación: 10/01/2025",
		"today": "2025-02-11",
	})
	require.NotNil(t, out.Deadline)
	assert.Equal(t, -1, out.Deadline.DaysRemaining)

	_, out = callTool[ComputeDeadlineOutput](t, cs, "compute_deadline", map[string]any{"text": "sin fecha"})
	assert.False(t, out.Found)
	assert.Nil(t, out.Deadline)
}

func TestComputeDeadline_BadToday(t *testing.T) {
	svc := newService(&mockOrchestrator{})
	_, _, err := svc.ComputeDeadline(context.Background(), nil, ComputeDeadlineInput{Text: "x", Today: "20/01/2025"})
	assert.Error(t, err)
}

func TestListAgents(t *testing.T) {
	defaults := agent.DefaultRegistry().ListAgents()
	require.NotEmpty(t, defaults)
	first := defaults[0]

	svc := NewAppealService(&mockOrchestrator{}, agent.DefaultRegistry(), mapCreds{first.CredentialKey: "sk-test"}, deadline.NewCalculator(deadline.DefaultRules()))
	cs := connect(t, svc)

	_, out := callTool[ListAgentsOutput](t, cs, "list_agents", map[string]any{})
	require.Len(t, out.Agents, len(defaults))
	assert.Equal(t, first.ID, out.Agents[0].ID)
	assert.Equal(t, string(first.Provider), out.Agents[0].Provider)
	for i, a := range out.Agents {
		assert.Equal(t, defaults[i].CredentialKey == first.CredentialKey, a.Configured, a.ID)
	}
}

func TestMCPServer_UnknownTool(t *testing.T) {
	cs := connect(t, newService(&mockOrchestrator{}))

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "no_such_tool"})
	// The SDK reports an unknown tool either as a protocol error or as a
	// tool result flagged IsError.
	if err == nil {
		assert.True(t, result.IsError)
	}
}
