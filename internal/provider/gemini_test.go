package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

func geminiAgent(baseURL string) agent.Identity {
	return agent.Identity{
		ID:       "gemini",
		Provider: agent.ProviderGemini,
		Model:    "gemini-2.0-flash",
		BaseURL:  baseURL,
		Vision:   true,
		Enabled:  true,
	}
}

func TestGemini_RequestShape(t *testing.T) {
	var body map[string]any
	var path string
	srv := captureServer(t, 200,
		`{"candidates":[{"content":{"parts":[{"text":"Primera "},{"text":"parte"}]}}]}`, &body, &path)

	out, err := NewGeminiAdapter(srv.Client(), nil).Call(context.Background(), geminiAgent(srv.URL), "g-key",
		Request{SystemPrompt: "sys", UserPrompt: "user", Image: []byte("%PDF-1.4"), ImageMIME: "application/pdf"},
		CallOptions{MaxTokens: 256, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "Primera parte", out)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent?key=g-key", path)

	sys := body["systemInstruction"].(map[string]any)["parts"].([]any)
	assert.Equal(t, "sys", sys[0].(map[string]any)["text"])

	contents := body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "user", parts[0].(map[string]any)["text"])
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "application/pdf", inline["mimeType"])
	assert.Equal(t, "JVBERi0xLjQ=", inline["data"])

	gc := body["generationConfig"].(map[string]any)
	assert.EqualValues(t, 256, gc["maxOutputTokens"])
	assert.InDelta(t, 0.2, gc["temperature"], 1e-9)
}

func TestGemini_Preamble(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, 200, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`, &body, nil)

	id := geminiAgent(srv.URL)
	id.SystemAsPreamble = true
	_, err := NewGeminiAdapter(srv.Client(), nil).Call(context.Background(), id, "k",
		Request{SystemPrompt: "sys", UserPrompt: "user"}, CallOptions{})
	require.NoError(t, err)

	_, hasSystem := body["systemInstruction"]
	assert.False(t, hasSystem)
	_, hasGen := body["generationConfig"]
	assert.False(t, hasGen)
	text := body["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, preambleOpen+"\nsys\n"+preambleClose)
}

func TestGemini_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		class  error
		msg    string
	}{
		{"array error", 429, `[{"error":{"code":429,"message":"Resource has been exhausted"}}]`, ErrRateLimit, "Resource has been exhausted"},
		{"blocked prompt", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, ErrEmptyResponse, "prompt blocked: SAFETY"},
		{"empty parts", 200, `{"candidates":[{"content":{"parts":[]}}]}`, ErrEmptyResponse, ""},
		{"silent", 200, `{"error":{"message":"API key expired"}}`, ErrSilentError, "API key expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := captureServer(t, tc.status, tc.body, nil, nil)
			_, err := NewGeminiAdapter(srv.Client(), nil).Call(context.Background(), geminiAgent(srv.URL), "k",
				Request{UserPrompt: "x"}, CallOptions{})
			require.ErrorIs(t, err, tc.class)
			var ae *AdapterError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tc.msg, ae.Message)
		})
	}
}

func TestDispatcher_Routes(t *testing.T) {
	srv := captureServer(t, 200, `{"candidates":[{"content":{"parts":[{"text":"g"}]}}]}`, nil, nil)
	d := NewStandardDispatcher(srv.Client(), nil)

	out, err := d.Call(context.Background(), geminiAgent(srv.URL), "k", Request{UserPrompt: "x"}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "g", out)

	_, err = d.Call(context.Background(), agent.Identity{ID: "x", Provider: "cohere", Model: "m"}, "k", Request{}, CallOptions{})
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestGemini_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	const key = "SECRET-GEMINI-KEY"
	_, err := NewGeminiAdapter(http.DefaultClient, nil).Call(context.Background(), geminiAgent(base), key,
		Request{UserPrompt: "x"}, CallOptions{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.Contains(t, err.Error(), "key=REDACTED")
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "https://h/p?key=REDACTED", redactQuery("https://h/p?key=abc"))
	assert.Equal(t, "https://h/p", redactQuery("https://h/p"))
	assert.Equal(t, "[unparseable url]", redactQuery("://\x7f"))
}
