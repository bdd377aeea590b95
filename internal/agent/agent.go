package agent

import (
	"context"
	"errors"
	"strings"
)

// Provider identifies a vendor wire-format family.
type Provider string

const (
	// ProviderOpenAI covers every chat/completions compatible backend
	// (OpenAI, DeepSeek, Groq, OpenRouter, ...).
	ProviderOpenAI Provider = "openai"

	// ProviderGemini is the Google generative-content API.
	ProviderGemini Provider = "gemini"
)

// Valid reports whether p is a known provider family.
func (p Provider) Valid() bool {
	return p == ProviderOpenAI || p == ProviderGemini
}

// Identity binds a label and drafting role to one provider model.
type Identity struct {
	ID       string   `json:"id" yaml:"id"`
	Label    string   `json:"label" yaml:"label"`
	Provider Provider `json:"provider" yaml:"provider"`
	Model    string   `json:"model" yaml:"model"`

	// Role is the persona text prepended to the drafting prompt.
	Role  string `json:"role,omitempty" yaml:"role,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`

	// BaseURL overrides the provider family default endpoint.
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// CredentialKey names the central credential, e.g. OPENAI_API_KEY.
	CredentialKey string `json:"credentialKey,omitempty" yaml:"credentialKey,omitempty"`

	Vision bool `json:"vision" yaml:"vision"`

	// SystemAsPreamble sends the system prompt inside the user turn for
	// models that reject a system role.
	SystemAsPreamble bool `json:"systemAsPreamble,omitempty" yaml:"systemAsPreamble,omitempty"`

	Enabled bool `json:"enabled" yaml:"enabled"`

	// FallbackModels are tried in order when Model is unavailable.
	FallbackModels []string `json:"fallbackModels,omitempty" yaml:"fallbackModels,omitempty"`

	MaxTokens   int     `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// Models returns the primary model followed by its fallbacks, without
// duplicates or blanks.
func (id Identity) Models() []string {
	seen := make(map[string]bool, 1+len(id.FallbackModels))
	out := make([]string, 0, 1+len(id.FallbackModels))
	for _, m := range append([]string{id.Model}, id.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Accepts reports whether the agent can read an attachment of the given MIME
// type. Both families take images when Vision is set. Only Gemini takes PDFs.
func (id Identity) Accepts(mime string) bool {
	if !id.Vision {
		return false
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return true
	case mime == "application/pdf":
		return id.Provider == ProviderGemini
	}
	return false
}

// CredentialSource resolves central credentials by key. Absence is reported
// as an empty string with a nil error.
type CredentialSource interface {
	Credential(ctx context.Context, key string) (string, error)
}

// Registry errors.
var (
	ErrAgentNotFound  = errors.New("agent not found")
	ErrDuplicateAgent = errors.New("duplicate agent id")
	ErrInvalidAgent   = errors.New("invalid agent")
	ErrNoCredential   = errors.New("no credential")
)

// Skip reasons recorded for agents left out of a fan-out.
const (
	SkipDisabled          = "disabled"
	SkipCredentialMissing = "credential missing"
	SkipVisionRequired    = "vision required"
)
