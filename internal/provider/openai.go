package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/tracer"
)

// DefaultOpenAIBaseURL is used when an OpenAI-family agent has no BaseURL.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

var _ Adapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter speaks the chat/completions wire format shared by OpenAI and
// compatible vendors.
type OpenAIAdapter struct {
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIAdapter creates an adapter using client for transport.
func NewOpenAIAdapter(client *http.Client, logger *zap.Logger) *OpenAIAdapter {
	if client == nil {
		client = NewHTTPClient(HTTPConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIAdapter{client: client, logger: logger}
}

// --- wire types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// openaiMessage content is a string, or a []openaiPart when an image is
// attached.
type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openaiPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call implements Adapter.
func (a *OpenAIAdapter) Call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "provider.call",
		tracer.StringAttr("agent.id", id.ID),
		tracer.StringAttr("llm.provider", string(agent.ProviderOpenAI)),
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

func (a *OpenAIAdapter) call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	if err := requireCredential(credential); err != nil {
		return "", err
	}
	att, err := resolveAttachment(id, req)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(buildOpenAIRequest(id, req, att, opts))
	if err != nil {
		return "", &AdapterError{Message: err.Error(), Err: ErrInvalidRequest}
	}

	base := strings.TrimRight(id.BaseURL, "/")
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	raw, err := doJSONRequest(ctx, a.client, base+"/chat/completions", body, map[string]string{
		"Authorization": "Bearer " + credential,
	})
	if err != nil {
		return "", err
	}
	if se := silentError(raw); se != nil {
		return "", se
	}

	var resp openaiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &AdapterError{Status: http.StatusOK, Message: "decode response: " + err.Error(), Err: ErrMalformedResponse}
	}
	if len(resp.Choices) == 0 {
		return "", &AdapterError{Status: http.StatusOK, Message: "response has no choices", Err: ErrEmptyResponse}
	}
	return checkContent(resp.Choices[0].Message.Content)
}

func buildOpenAIRequest(id agent.Identity, req Request, att *attachment, opts CallOptions) openaiRequest {
	userText := req.UserPrompt
	var messages []openaiMessage
	if id.SystemAsPreamble {
		userText = withPreamble(req.SystemPrompt, req.UserPrompt)
	} else if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.SystemPrompt})
	}

	var content any = userText
	if att != nil {
		content = []openaiPart{
			{Type: "text", Text: userText},
			{Type: "image_url", ImageURL: &openaiImageURL{URL: dataURL(att)}},
		}
	}
	messages = append(messages, openaiMessage{Role: "user", Content: content})

	out := openaiRequest{
		Model:     id.Model,
		Messages:  messages,
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		out.Temperature = &t
	}
	return out
}

func dataURL(att *attachment) string {
	return "data:" + att.mime + ";base64," + base64.StdEncoding.EncodeToString(att.data)
}
