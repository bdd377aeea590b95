package credstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Get(ctx, "OPENAI_API_KEY")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "OPENAI_API_KEY", " sk-1 "))
	require.NoError(t, s.Set(ctx, "GEMINI_API_KEY", "g-1"))
	require.NoError(t, s.Set(ctx, "OPENAI_API_KEY", "sk-2"))

	v, err := s.Get(ctx, "OPENAI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-2", v)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GEMINI_API_KEY", "OPENAI_API_KEY"}, keys)

	require.NoError(t, s.Clear(ctx, "GEMINI_API_KEY"))
	assert.ErrorIs(t, s.Clear(ctx, "GEMINI_API_KEY"), ErrNotFound)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, keys)
}

func TestSQLiteStore_RejectsBlank(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Set(context.Background(), "", "x"))
	assert.Error(t, s.Set(context.Background(), "K", "  "))
}

func TestSQLiteStore_CredentialAbsentIsEmpty(t *testing.T) {
	s := openTemp(t)
	v, err := s.Credential(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "GROQ_API_KEY", "gq"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Credential(ctx, "GROQ_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "gq", v)
}

func TestEnvSource(t *testing.T) {
	t.Setenv("APPEALDRAFT_TEST_KEY", "  env-value ")
	v, err := NewEnvSource(nil).Credential(context.Background(), "APPEALDRAFT_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "env-value", v)

	vp := viper.New()
	vp.Set("DEEPSEEK_API_KEY", "from-config")
	v, err = NewEnvSource(vp).Credential(context.Background(), "DEEPSEEK_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-config", v)
}

type mapSource map[string]string

func (m mapSource) Credential(_ context.Context, key string) (string, error) { return m[key], nil }

type failingSource struct{}

func (failingSource) Credential(context.Context, string) (string, error) {
	return "", errors.New("store offline")
}

func TestChainSource(t *testing.T) {
	ctx := context.Background()
	chain := ChainSource{failingSource{}, mapSource{"A": ""}, nil, mapSource{"A": "second", "B": "b"}}

	v, err := chain.Credential(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	v, err = chain.Credential(ctx, "C")
	assert.EqualError(t, err, "store offline")
	assert.Empty(t, v)

	v, err = ChainSource{mapSource{}}.Credential(ctx, "C")
	assert.NoError(t, err)
	assert.Empty(t, v)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****cdef", Mask("12abcdef"))
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "", Mask(""))
}
