package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error classes. Adapter failures wrap one of these in an *AdapterError.
var (
	ErrCredentialMissing   = errors.New("credential missing")
	ErrUnsupportedModality = errors.New("unsupported modality")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrEmptyResponse       = errors.New("empty response")
	ErrSilentError         = errors.New("error payload in successful response")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrRateLimit           = errors.New("rate limited")
	ErrAuth                = errors.New("authentication rejected")
	ErrModelNotFound       = errors.New("model not found")
	ErrServer              = errors.New("provider server error")
	ErrHTTPStatus          = errors.New("unexpected HTTP status")
	ErrCircuitOpen         = errors.New("circuit open")
	ErrNoCandidates        = errors.New("no candidates to try")
)

// AdapterError is a failure scoped to one agent call.
type AdapterError struct {
	Agent   string
	Model   string
	Status  int    // HTTP status, 0 when no response was received
	Message string // human-readable vendor message
	Err     error  // error class
}

func (e *AdapterError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Agent == "" {
		return msg
	}
	if e.Model == "" {
		return fmt.Sprintf("%s: %s", e.Agent, msg)
	}
	return fmt.Sprintf("%s (%s): %s", e.Agent, e.Model, msg)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// IsRetryable reports whether a different model or agent may succeed where
// this call failed.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrRateLimit),
		errors.Is(err, ErrModelNotFound),
		errors.Is(err, ErrServer),
		errors.Is(err, ErrSilentError),
		errors.Is(err, ErrCircuitOpen):
		return true
	}
	return false
}

// isCallerFault reports errors raised before any request is sent.
func isCallerFault(err error) bool {
	return errors.Is(err, ErrCredentialMissing) ||
		errors.Is(err, ErrUnsupportedModality) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnknownProvider) ||
		errors.Is(err, context.Canceled)
}

// statusError maps a non-2xx response to an AdapterError.
func statusError(status int, body []byte) *AdapterError {
	msg := extractErrorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}

	var class error
	switch {
	case status == http.StatusTooManyRequests:
		class = ErrRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		class = ErrAuth
	case status == http.StatusNotFound:
		class = ErrModelNotFound
	case status >= 500:
		class = ErrServer
	default:
		class = ErrHTTPStatus
	}
	return &AdapterError{Status: status, Message: msg, Err: class}
}

// extractErrorMessage pulls a readable message out of a vendor error body.
// Vendors use {"error":{"message":...}}, {"message":...}, {"error":"..."},
// a bare JSON string, or a one-element array of any of these.
func extractErrorMessage(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return messageFrom(v)
}

func messageFrom(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			return messageFrom(t[0])
		}
	case map[string]any:
		if e, ok := t["error"]; ok {
			switch ev := e.(type) {
			case string:
				if ev != "" {
					return ev
				}
			case map[string]any:
				if m, ok := ev["message"].(string); ok && m != "" {
					return m
				}
			}
		}
		if m, ok := t["message"].(string); ok && m != "" {
			return m
		}
	}
	return ""
}

// silentError reports a 2xx body that carries a non-null "error" field.
func silentError(body []byte) *AdapterError {
	var peek struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return nil
	}
	if len(peek.Error) == 0 || string(peek.Error) == "null" {
		return nil
	}
	msg := extractErrorMessage(body)
	if msg == "" {
		msg = "error field in successful response"
	}
	return &AdapterError{Status: http.StatusOK, Message: msg, Err: ErrSilentError}
}

// attribute stamps agent and model onto err when it is an AdapterError, or
// wraps it into one.
func attribute(err error, agentID, model string) error {
	if err == nil {
		return nil
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		if ae.Agent == "" {
			ae.Agent = agentID
		}
		if ae.Model == "" {
			ae.Model = model
		}
		return ae
	}
	return &AdapterError{Agent: agentID, Model: model, Message: err.Error(), Err: err}
}
