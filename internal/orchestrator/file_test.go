package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Multa.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Multa.PDF", f.Name)
	assert.Equal(t, "application/pdf", f.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4"), f.Data)

	unknown := filepath.Join(dir, "notice")
	require.NoError(t, os.WriteFile(unknown, []byte("x"), 0o644))
	f, err = LoadFile(unknown)
	require.NoError(t, err)
	assert.Empty(t, f.MIMEType)

	_, err = LoadFile(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}
