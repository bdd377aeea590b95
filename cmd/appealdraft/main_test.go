package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/appealdraft/internal/config"
)

func TestRunInit_CreatesFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, runInit(&out, dir, false))
	assert.Contains(t, out.String(), "created ./appealdraft.yml")
	assert.Contains(t, out.String(), "created .mcp.json")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)

	var mcp mcpConfig
	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &mcp))
	assert.JSONEq(t, string(appealdraftMCPEntry), string(mcp.MCPServers["appealdraft"]))
}

func TestRunInit_KeepsExistingUnlessForced(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "appealdraft.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  addr: \":9999\"\n"), 0o644))
	mcpPath := filepath.Join(dir, ".mcp.json")
	require.NoError(t, os.WriteFile(mcpPath, []byte(`{"mcpServers":{"other":{"command":"x"}}}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, runInit(&out, dir, false))
	assert.Contains(t, out.String(), "skipped ./appealdraft.yml")
	assert.Contains(t, out.String(), "updated .mcp.json")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)

	var mcp mcpConfig
	data, err := os.ReadFile(mcpPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &mcp))
	assert.Contains(t, mcp.MCPServers, "other")
	assert.Contains(t, mcp.MCPServers, "appealdraft")

	out.Reset()
	require.NoError(t, runInit(&out, dir, false))
	assert.Contains(t, out.String(), "skipped .mcp.json appealdraft entry")

	out.Reset()
	require.NoError(t, runInit(&out, dir, true))
	assert.Contains(t, out.String(), "created ./appealdraft.yml")
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestMergeMCPConfig_RejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mcp.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	assert.Error(t, mergeMCPConfig(&bytes.Buffer{}, path, false))
}

func TestParseSupport(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "foto.png")
	require.NoError(t, os.WriteFile(photo, []byte("png"), 0o644))

	sf, err := parseSupport(photo + "= señal oculta por un árbol ")
	require.NoError(t, err)
	assert.Equal(t, "foto.png", sf.Name)
	assert.Equal(t, "image/png", sf.MIMEType)
	assert.Equal(t, "señal oculta por un árbol", sf.Context)

	sf, err = parseSupport(photo)
	require.NoError(t, err)
	assert.Empty(t, sf.Context)

	_, err = parseSupport(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
