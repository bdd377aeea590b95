package credstore

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

// EnvSource reads credentials from environment variables through viper, so
// config-file values and flags bound to the same key also resolve.
type EnvSource struct {
	v *viper.Viper
}

var _ agent.CredentialSource = (*EnvSource)(nil)

// NewEnvSource wraps v. A nil v reads the process environment only.
func NewEnvSource(v *viper.Viper) *EnvSource {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	return &EnvSource{v: v}
}

// Credential implements agent.CredentialSource.
func (e *EnvSource) Credential(_ context.Context, key string) (string, error) {
	return strings.TrimSpace(e.v.GetString(key)), nil
}

// ChainSource asks each source in order and returns the first non-empty
// value. Failing sources are skipped.
type ChainSource []agent.CredentialSource

var _ agent.CredentialSource = ChainSource(nil)

// Credential implements agent.CredentialSource. When nothing is found the
// first lookup error, if any, is returned.
func (c ChainSource) Credential(ctx context.Context, key string) (string, error) {
	var firstErr error
	for _, src := range c {
		if src == nil {
			continue
		}
		v, err := src.Credential(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return "", firstErr
}
