// Package provider translates canonical prompt requests into vendor LLM wire
// formats and normalizes their responses and failures.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

// Request is the provider-agnostic call shape.
type Request struct {
	SystemPrompt string
	UserPrompt   string

	// Image is an optional attachment. ImageMIME is required when set.
	Image     []byte
	ImageMIME string

	// RequireImage fails the call with ErrUnsupportedModality instead of
	// dropping the image for models without vision.
	RequireImage bool
}

// CallOptions are sampling parameters for one call.
type CallOptions struct {
	MaxTokens   int
	Temperature float64
}

// Adapter performs one call against one agent. Implementations do not retry.
type Adapter interface {
	Call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error)

// Call implements Adapter.
func (f AdapterFunc) Call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	return f(ctx, id, credential, req, opts)
}

// Dispatcher routes calls to the adapter registered for the agent's
// provider family.
type Dispatcher struct {
	adapters map[agent.Provider]Adapter
}

var _ Adapter = (*Dispatcher)(nil)

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{adapters: make(map[agent.Provider]Adapter)}
}

// NewStandardDispatcher registers the OpenAI-compatible and Gemini adapters
// over a shared client.
func NewStandardDispatcher(client *http.Client, logger *zap.Logger) *Dispatcher {
	if client == nil {
		client = NewHTTPClient(HTTPConfig{})
	}
	return NewDispatcher().
		Register(agent.ProviderOpenAI, NewOpenAIAdapter(client, logger)).
		Register(agent.ProviderGemini, NewGeminiAdapter(client, logger))
}

// Register binds an adapter to a provider family.
func (d *Dispatcher) Register(p agent.Provider, a Adapter) *Dispatcher {
	d.adapters[p] = a
	return d
}

// Call implements Adapter.
func (d *Dispatcher) Call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	a, ok := d.adapters[id.Provider]
	if !ok {
		return "", &AdapterError{
			Agent:   id.ID,
			Model:   id.Model,
			Message: fmt.Sprintf("no adapter for provider %q", id.Provider),
			Err:     ErrUnknownProvider,
		}
	}
	return a.Call(ctx, id, credential, req, opts)
}

// attachment is the image an adapter should send, after modality checks.
type attachment struct {
	data []byte
	mime string
}

// resolveAttachment validates the image against the agent's capabilities.
func resolveAttachment(id agent.Identity, req Request) (*attachment, error) {
	if len(req.Image) == 0 {
		return nil, nil
	}
	if req.ImageMIME == "" {
		return nil, &AdapterError{Message: "image attached without MIME type", Err: ErrInvalidRequest}
	}
	if id.Accepts(req.ImageMIME) {
		return &attachment{data: req.Image, mime: req.ImageMIME}, nil
	}
	if req.RequireImage {
		return nil, &AdapterError{
			Message: fmt.Sprintf("model does not accept %s input", req.ImageMIME),
			Err:     ErrUnsupportedModality,
		}
	}
	return nil, nil
}

// Preamble delimiters used when a model rejects the system role.
const (
	preambleOpen  = "=== INSTRUCCIONES DEL SISTEMA ==="
	preambleClose = "=== FIN DE LAS INSTRUCCIONES ==="
)

// withPreamble folds the system prompt into the user content.
func withPreamble(system, user string) string {
	if strings.TrimSpace(system) == "" {
		return user
	}
	return preambleOpen + "\n" + system + "\n" + preambleClose + "\n\n" + user
}

func requireCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return &AdapterError{Err: ErrCredentialMissing}
	}
	return nil
}

func checkContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", &AdapterError{Err: ErrEmptyResponse}
	}
	return content, nil
}
