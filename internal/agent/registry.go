package agent

import (
	"context"
	"fmt"
	"strings"
)

// Registry is an immutable snapshot of configured agents. Overrides produce a
// new snapshot, so a Registry can be shared by concurrent requests.
type Registry struct {
	agents []Identity
	index  map[string]int
}

// NewRegistry validates agents and builds a snapshot preserving their order.
func NewRegistry(agents []Identity) (*Registry, error) {
	r := &Registry{
		agents: make([]Identity, 0, len(agents)),
		index:  make(map[string]int, len(agents)),
	}
	for _, a := range agents {
		if err := validate(a); err != nil {
			return nil, err
		}
		if _, dup := r.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAgent, a.ID)
		}
		r.index[a.ID] = len(r.agents)
		r.agents = append(r.agents, cloneIdentity(a))
	}
	return r, nil
}

// DefaultRegistry returns the built-in agent set.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultAgents())
	if err != nil {
		panic(fmt.Sprintf("agent: invalid default registry: %v", err))
	}
	return r
}

func validate(a Identity) error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidAgent)
	case !a.Provider.Valid():
		return fmt.Errorf("%w: %q has unknown provider %q", ErrInvalidAgent, a.ID, a.Provider)
	case a.Model == "":
		return fmt.Errorf("%w: %q has no model", ErrInvalidAgent, a.ID)
	}
	return nil
}

func cloneIdentity(a Identity) Identity {
	a.FallbackModels = append([]string(nil), a.FallbackModels...)
	return a
}

// ListAgents returns a copy of every agent in registry order.
func (r *Registry) ListAgents() []Identity {
	out := make([]Identity, len(r.agents))
	for i, a := range r.agents {
		out[i] = cloneIdentity(a)
	}
	return out
}

// Len returns the number of agents in the snapshot.
func (r *Registry) Len() int { return len(r.agents) }

// Resolve looks up an agent by id.
func (r *Registry) Resolve(id string) (Identity, error) {
	i, ok := r.index[id]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrAgentNotFound, id)
	}
	return cloneIdentity(r.agents[i]), nil
}

// Override is a user-supplied change to one agent. Zero fields keep the
// registry value. An unknown ID with a provider and model adds a new agent.
type Override struct {
	ID               string   `json:"id" yaml:"id"`
	Label            string   `json:"label,omitempty" yaml:"label,omitempty"`
	Provider         Provider `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model            string   `json:"model,omitempty" yaml:"model,omitempty"`
	Role             string   `json:"role,omitempty" yaml:"role,omitempty"`
	Color            string   `json:"color,omitempty" yaml:"color,omitempty"`
	BaseURL          string   `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	CredentialKey    string   `json:"credentialKey,omitempty" yaml:"credentialKey,omitempty"`
	Credential       string   `json:"apiKey,omitempty" yaml:"-"`
	Enabled          *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Vision           *bool    `json:"vision,omitempty" yaml:"vision,omitempty"`
	SystemAsPreamble *bool    `json:"systemAsPreamble,omitempty" yaml:"systemAsPreamble,omitempty"`
	FallbackModels   []string `json:"fallbackModels,omitempty" yaml:"fallbackModels,omitempty"`
}

// WithOverrides returns a new snapshot with overrides applied in order.
func (r *Registry) WithOverrides(overrides []Override) (*Registry, error) {
	agents := r.ListAgents()
	index := make(map[string]int, len(agents))
	for i, a := range agents {
		index[a.ID] = i
	}

	for _, o := range overrides {
		if strings.TrimSpace(o.ID) == "" {
			return nil, fmt.Errorf("%w: override without id", ErrInvalidAgent)
		}
		i, ok := index[o.ID]
		if !ok {
			if o.Provider == "" || o.Model == "" {
				return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, o.ID)
			}
			agents = append(agents, Identity{ID: o.ID, Label: o.ID, Enabled: true})
			i = len(agents) - 1
			index[o.ID] = i
		}
		applyOverride(&agents[i], o)
	}
	return NewRegistry(agents)
}

func applyOverride(a *Identity, o Override) {
	if o.Label != "" {
		a.Label = o.Label
	}
	if o.Provider != "" {
		a.Provider = o.Provider
	}
	if o.Model != "" {
		a.Model = o.Model
	}
	if o.Role != "" {
		a.Role = o.Role
	}
	if o.Color != "" {
		a.Color = o.Color
	}
	if o.BaseURL != "" {
		a.BaseURL = o.BaseURL
	}
	if o.CredentialKey != "" {
		a.CredentialKey = o.CredentialKey
	}
	if o.Enabled != nil {
		a.Enabled = *o.Enabled
	}
	if o.Vision != nil {
		a.Vision = *o.Vision
	}
	if o.SystemAsPreamble != nil {
		a.SystemAsPreamble = *o.SystemAsPreamble
	}
	if o.FallbackModels != nil {
		a.FallbackModels = append([]string(nil), o.FallbackModels...)
	}
}

// ClientCredentials collects the per-agent credentials carried by overrides.
func ClientCredentials(overrides []Override) map[string]string {
	creds := make(map[string]string)
	for _, o := range overrides {
		if c := strings.TrimSpace(o.Credential); c != "" {
			creds[o.ID] = c
		}
	}
	return creds
}

// Bound is an agent paired with the credential it will call with.
type Bound struct {
	Identity   Identity
	Credential string
}

// Skipped is an agent left out of a fan-out and why.
type Skipped struct {
	Identity Identity
	Reason   string
}

// Selection partitions a registry into runnable and skipped agents, both in
// registry order.
type Selection struct {
	Runnable []Bound
	Skipped  []Skipped
}

// HasVision reports whether any runnable agent accepts mime attachments.
func (s Selection) HasVision(mime string) bool {
	for _, b := range s.Runnable {
		if b.Identity.Accepts(mime) {
			return true
		}
	}
	return false
}

// WithVision keeps runnable only the agents that accept mime attachments.
// The rest are appended to Skipped with SkipVisionRequired.
func (s Selection) WithVision(mime string) Selection {
	out := Selection{Skipped: append([]Skipped(nil), s.Skipped...)}
	for _, b := range s.Runnable {
		if b.Identity.Accepts(mime) {
			out.Runnable = append(out.Runnable, b)
			continue
		}
		out.Skipped = append(out.Skipped, Skipped{Identity: b.Identity, Reason: SkipVisionRequired})
	}
	return out
}

// Select resolves credentials for every enabled agent. Client-held
// credentials win over src. Disabled agents and agents without a credential
// are skipped. Lookup errors from src count as a missing credential.
func (r *Registry) Select(ctx context.Context, src CredentialSource, clientCreds map[string]string) Selection {
	var sel Selection
	for _, a := range r.agents {
		a = cloneIdentity(a)
		if !a.Enabled {
			sel.Skipped = append(sel.Skipped, Skipped{Identity: a, Reason: SkipDisabled})
			continue
		}
		cred := lookupCredential(ctx, a, src, clientCreds)
		if cred == "" {
			sel.Skipped = append(sel.Skipped, Skipped{Identity: a, Reason: SkipCredentialMissing})
			continue
		}
		sel.Runnable = append(sel.Runnable, Bound{Identity: a, Credential: cred})
	}
	return sel
}

// Bind resolves one agent and its credential regardless of its enabled flag.
// Used for agents that take part only in merging.
func (r *Registry) Bind(ctx context.Context, id string, src CredentialSource, clientCreds map[string]string) (Bound, error) {
	a, err := r.Resolve(id)
	if err != nil {
		return Bound{}, err
	}
	cred := lookupCredential(ctx, a, src, clientCreds)
	if cred == "" {
		return Bound{}, fmt.Errorf("%w for agent %q", ErrNoCredential, id)
	}
	return Bound{Identity: a, Credential: cred}, nil
}

func lookupCredential(ctx context.Context, a Identity, src CredentialSource, clientCreds map[string]string) string {
	if c := strings.TrimSpace(clientCreds[a.ID]); c != "" {
		return c
	}
	if src == nil || a.CredentialKey == "" {
		return ""
	}
	c, err := src.Credential(ctx, a.CredentialKey)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c)
}
