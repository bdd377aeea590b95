package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/tracer"
)

// DefaultGeminiBaseURL is the Google generative-language endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

var _ Adapter = (*GeminiAdapter)(nil)

// GeminiAdapter speaks the generateContent wire format.
type GeminiAdapter struct {
	client *http.Client
	logger *zap.Logger
}

// NewGeminiAdapter creates an adapter using client for transport.
func NewGeminiAdapter(client *http.Client, logger *zap.Logger) *GeminiAdapter {
	if client == nil {
		client = NewHTTPClient(HTTPConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiAdapter{client: client, logger: logger}
}

// --- wire types ---

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Call implements Adapter.
func (a *GeminiAdapter) Call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "provider.call",
		tracer.StringAttr("agent.id", id.ID),
		tracer.StringAttr("llm.provider", string(agent.ProviderGemini)),
		tracer.StringAttr("llm.model", id.Model),
	)
	start := time.Now()
	content, err := a.call(ctx, id, credential, req, opts)
	err = attribute(err, id.ID, id.Model)
	tracer.End(span, err)

	a.logger.Debug("provider call finished",
		zap.String("agent", id.ID),
		zap.String("model", id.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("chars", len(content)),
		zap.Error(err),
	)
	return content, err
}

func (a *GeminiAdapter) call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	if err := requireCredential(credential); err != nil {
		return "", err
	}
	att, err := resolveAttachment(id, req)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(buildGeminiRequest(id, req, att, opts))
	if err != nil {
		return "", &AdapterError{Message: err.Error(), Err: ErrInvalidRequest}
	}

	base := strings.TrimRight(id.BaseURL, "/")
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		base, url.PathEscape(id.Model), url.QueryEscape(credential))

	raw, err := doJSONRequest(ctx, a.client, endpoint, body, nil)
	if err != nil {
		return "", err
	}
	if se := silentError(raw); se != nil {
		return "", se
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &AdapterError{Status: http.StatusOK, Message: "decode response: " + err.Error(), Err: ErrMalformedResponse}
	}
	if len(resp.Candidates) == 0 {
		msg := "response has no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			msg = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return "", &AdapterError{Status: http.StatusOK, Message: msg, Err: ErrEmptyResponse}
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return checkContent(sb.String())
}

func buildGeminiRequest(id agent.Identity, req Request, att *attachment, opts CallOptions) geminiRequest {
	userText := req.UserPrompt
	var system *geminiContent
	if id.SystemAsPreamble {
		userText = withPreamble(req.SystemPrompt, req.UserPrompt)
	} else if strings.TrimSpace(req.SystemPrompt) != "" {
		system = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	parts := []geminiPart{{Text: userText}}
	if att != nil {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: att.mime,
			Data:     base64.StdEncoding.EncodeToString(att.data),
		}})
	}

	out := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
		SystemInstruction: system,
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		gc := &geminiGenConfig{MaxOutputTokens: opts.MaxTokens}
		if opts.Temperature > 0 {
			t := opts.Temperature
			gc.Temperature = &t
		}
		out.GenerationConfig = gc
	}
	return out
}
