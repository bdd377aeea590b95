// Package config loads appealdraft.yml, the project-level settings shared by
// the CLI, the HTTP server and the MCP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/logging"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
	"github.com/dusk-indust/appealdraft/internal/provider"
	"github.com/dusk-indust/appealdraft/internal/tracer"
)

// FileNames are tried in order by Load.
var FileNames = []string{"appealdraft.yml", "appealdraft.yaml"}

// Config holds every configurable section.
type Config struct {
	Logging     logging.Config       `yaml:"logging,omitempty"`
	Tracing     tracer.Config        `yaml:"tracing,omitempty"`
	Server      ServerConfig         `yaml:"server,omitempty"`
	Pipeline    PipelineConfig       `yaml:"pipeline,omitempty"`
	Agents      []agent.Override     `yaml:"agents,omitempty"`
	HTTP        provider.HTTPConfig  `yaml:"http,omitempty"`
	Resilience  provider.GuardConfig `yaml:"resilience,omitempty"`
	Credentials CredentialsConfig    `yaml:"credentials,omitempty"`
	Deadline    deadline.Rules       `yaml:"deadline,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr,omitempty"`
	MaxUploadMB int    `yaml:"maxUploadMB,omitempty"`
}

// PipelineConfig mirrors orchestrator.Config in file form.
type PipelineConfig struct {
	Strategy             string        `yaml:"strategy,omitempty"`
	MasterAgent          string        `yaml:"masterAgent,omitempty"`
	SecondaryMasterAgent string        `yaml:"secondaryMasterAgent,omitempty"`
	RequestTimeout       time.Duration `yaml:"requestTimeout,omitempty"`
	MetadataTimeout      time.Duration `yaml:"metadataTimeout,omitempty"`
	DraftTimeout         time.Duration `yaml:"draftTimeout,omitempty"`
	MergeTimeout         time.Duration `yaml:"mergeTimeout,omitempty"`
	CallTimeout          time.Duration `yaml:"callTimeout,omitempty"`
	Concurrency          int           `yaml:"concurrency,omitempty"`
}

// CredentialsConfig locates the local credential store.
type CredentialsConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	oc := orchestrator.DefaultConfig()
	return &Config{
		Server: ServerConfig{Addr: ":8080", MaxUploadMB: 20},
		Pipeline: PipelineConfig{
			Strategy:             string(oc.Strategy),
			MasterAgent:          oc.MasterAgentID,
			SecondaryMasterAgent: oc.SecondaryMasterAgentID,
			RequestTimeout:       oc.RequestTimeout,
			MetadataTimeout:      oc.MetadataTimeout,
			DraftTimeout:         oc.DraftTimeout,
			MergeTimeout:         oc.MergeTimeout,
			CallTimeout:          oc.CallTimeout,
		},
		Credentials: CredentialsConfig{Path: filepath.Join(".appealdraft", "credentials.db")},
		Deadline:    deadline.DefaultRules(),
	}
}

// Load reads appealdraft.yml or appealdraft.yaml from dir over the defaults.
// A missing file yields Default(), not an error.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg := Default()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return cfg, nil
	}
	return Default(), nil
}

// Validate reports every structural problem found.
func (c *Config) Validate() error {
	var errs []error
	if s := c.Pipeline.Strategy; s != "" && !orchestrator.MergeStrategy(s).Valid() {
		errs = append(errs, fmt.Errorf("pipeline.strategy: unknown strategy %q", s))
	}
	for name, d := range map[string]time.Duration{
		"requestTimeout":  c.Pipeline.RequestTimeout,
		"metadataTimeout": c.Pipeline.MetadataTimeout,
		"draftTimeout":    c.Pipeline.DraftTimeout,
		"mergeTimeout":    c.Pipeline.MergeTimeout,
		"callTimeout":     c.Pipeline.CallTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s: must not be negative", name))
		}
	}
	if c.Pipeline.Concurrency < 0 {
		errs = append(errs, errors.New("pipeline.concurrency: must not be negative"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format))
	}
	switch c.Tracing.Exporter {
	case "", "stdout", "noop":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: unsupported exporter %q", c.Tracing.Exporter))
	}
	if c.Server.MaxUploadMB < 0 {
		errs = append(errs, errors.New("server.maxUploadMB: must not be negative"))
	}
	if c.Resilience.PerMinute < 0 || c.Resilience.Burst < 0 {
		errs = append(errs, errors.New("resilience: rate limit values must not be negative"))
	}
	if _, err := c.Registry(); err != nil {
		errs = append(errs, fmt.Errorf("agents: %w", err))
	}
	return errors.Join(errs...)
}

// Orchestrator converts the pipeline section.
func (c *Config) Orchestrator() orchestrator.Config {
	p := c.Pipeline
	return orchestrator.Config{
		Strategy:               orchestrator.MergeStrategy(p.Strategy),
		MasterAgentID:          p.MasterAgent,
		SecondaryMasterAgentID: p.SecondaryMasterAgent,
		RequestTimeout:         p.RequestTimeout,
		MetadataTimeout:        p.MetadataTimeout,
		DraftTimeout:           p.DraftTimeout,
		MergeTimeout:           p.MergeTimeout,
		CallTimeout:            p.CallTimeout,
		Concurrency:            p.Concurrency,
	}
}

// Registry returns the built-in agents with the agents section applied.
func (c *Config) Registry() (*agent.Registry, error) {
	return agent.DefaultRegistry().WithOverrides(c.Agents)
}
