package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// maxResponseBody caps how much of a vendor response is read.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Transport defaults tuned for a handful of hosts with bursty parallel calls.
const (
	defaultConnTimeout         = 15 * time.Second
	defaultRespTimeout         = 90 * time.Second
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 120 * time.Second
)

// HTTPConfig tunes the shared HTTP client.
type HTTPConfig struct {
	ConnTimeout     time.Duration `yaml:"connTimeout,omitempty"`
	ResponseTimeout time.Duration `yaml:"responseTimeout,omitempty"`
}

// NewHTTPClient returns a client with a pooled transport. Request deadlines
// come from the call context.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	conn := cfg.ConnTimeout
	if conn <= 0 {
		conn = defaultConnTimeout
	}
	resp := cfg.ResponseTimeout
	if resp <= 0 {
		resp = defaultRespTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   conn,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: resp,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
}

// doJSONRequest POSTs body and returns the response body. Non-2xx statuses
// become an *AdapterError carrying the vendor message.
func doJSONRequest(ctx context.Context, client *http.Client, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &AdapterError{Message: fmt.Sprintf("create request: %v", redactURL(err)), Err: ErrInvalidRequest}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", redactURL(err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, statusError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// redactedValue replaces query values in URLs quoted by transport errors.
const redactedValue = "REDACTED"

// redactURL strips query values from the URL of a *url.Error. Gemini
// carries the API key as ?key=, and transport errors quote the full URL.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	ue.URL = redactQuery(ue.URL)
	return err
}

func redactQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	if u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for k := range q {
		q.Set(k, redactedValue)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
