// Package server exposes the appeal pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
	"github.com/dusk-indust/appealdraft/internal/render"
	"github.com/dusk-indust/appealdraft/internal/textextract"
)

const basePath = "/v1"

// Drafter runs one appeal request.
type Drafter interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)
}

// Config for the HTTP API handler.
type Config struct {
	Drafter     Drafter
	Registry    *agent.Registry
	Credentials agent.CredentialSource
	Deadlines   *deadline.Calculator

	// MaxUploadMB bounds request bodies. Zero means 20.
	MaxUploadMB int
	Version     string
	Logger      *zap.Logger

	now func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"no_agents"`
	Message string         `json:"message" example:"no runnable agents"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError is the error envelope {"error": {code, message}}.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

var errorModelOnce sync.Once

// installErrorModel points huma's process-wide error constructors at the
// {error:{code,message}} envelope.
func installErrorModel() {
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, errorDetails(errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		return newAPIError(status, "", msg, errorDetails(errs))
	}
}

// New returns an HTTP handler exposing the appeal API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Drafter == nil || cfg.Registry == nil {
		return nil, errors.New("server: drafter and registry are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Deadlines == nil {
		cfg.Deadlines = deadline.NewCalculator(deadline.DefaultRules())
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	errorModelOnce.Do(installErrorModel)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(accessLog(cfg.Logger))

	hcfg := huma.DefaultConfig("appealdraft API", cfg.Version)
	hcfg.OpenAPIPath = basePath + "/openapi"
	hcfg.DocsPath = basePath + "/docs"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	maxBody := int64(cfg.MaxUploadMB) << 20
	registerHealth(group, cfg)
	registerAgents(group, cfg)
	registerAppeals(group, cfg, maxBody)
	registerDeadline(group, cfg)

	return router, nil
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message, Details: details}}
}

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	return map[string]any{"errors": msgs}
}

// handleError maps pipeline errors to the envelope.
func handleError(err error) huma.StatusError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orchestrator.ErrNoInput):
		return newAPIError(http.StatusBadRequest, "bad_request", "either file or fineText is required", nil)
	case errors.Is(err, agent.ErrAgentNotFound), errors.Is(err, agent.ErrInvalidAgent), errors.Is(err, agent.ErrDuplicateAgent):
		return newAPIError(http.StatusBadRequest, "invalid_agents", err.Error(), nil)
	case errors.Is(err, orchestrator.ErrNoAgents):
		return newAPIError(http.StatusUnprocessableEntity, "no_agents", "no agent has a usable credential", nil)
	case errors.Is(err, orchestrator.ErrNoVisionAgent):
		return newAPIError(http.StatusUnprocessableEntity, "vision_required", err.Error(), nil)
	case errors.Is(err, textextract.ErrUnsupportedType):
		return newAPIError(http.StatusUnsupportedMediaType, "unsupported_document", err.Error(), nil)
	case errors.Is(err, textextract.ErrNoTextLayer), errors.Is(err, textextract.ErrUnreadable):
		return newAPIError(http.StatusUnprocessableEntity, "unreadable_document", err.Error(), nil)
	case errors.Is(err, orchestrator.ErrNoValidDrafts):
		return newAPIError(http.StatusBadGateway, "no_valid_drafts", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusGatewayTimeout, "timeout", "the request took too long", nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok", "version": cfg.Version}}, nil
	})
}

func registerAgents(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/agents",
		Summary:     "List configured agents",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []agentDTO `json:"body"`
	}, error) {
		ids := cfg.Registry.ListAgents()
		out := make([]agentDTO, 0, len(ids))
		for _, a := range ids {
			configured := false
			if cfg.Credentials != nil && a.CredentialKey != "" {
				c, err := cfg.Credentials.Credential(ctx, a.CredentialKey)
				configured = err == nil && c != ""
			}
			out = append(out, agentDTO{
				ID:            a.ID,
				Label:         a.Label,
				Provider:      a.Provider,
				Model:         a.Model,
				Role:          a.Role,
				Color:         a.Color,
				Vision:        a.Vision,
				Enabled:       a.Enabled,
				CredentialKey: a.CredentialKey,
				Configured:    configured,
			})
		}
		return &struct {
			Body []agentDTO `json:"body"`
		}{Body: out}, nil
	})
}

func registerAppeals(api huma.API, cfg Config, maxBody int64) {
	errs := []int{
		http.StatusBadRequest,
		http.StatusUnsupportedMediaType,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout,
	}

	huma.Register(api, huma.Operation{
		OperationID:  "draft-appeal",
		Method:       http.MethodPost,
		Path:         "/appeals",
		Summary:      "Draft an appeal",
		Description:  "Runs metadata extraction, parallel drafting and merging. Requests where no draft qualifies return 200 with error set and every agent's outcome.",
		MaxBodyBytes: maxBody,
		Errors:       errs,
	}, func(ctx context.Context, input *struct {
		Body appealRequestDTO
	}) (*struct {
		Body *orchestrator.Response `json:"body"`
	}, error) {
		resp, err := cfg.Drafter.Run(ctx, input.Body.toRequest())
		if err != nil && !(errors.Is(err, orchestrator.ErrNoValidDrafts) && resp != nil) {
			cfg.Logger.Warn("appeal failed", zap.Error(err))
			return nil, handleError(err)
		}
		return &struct {
			Body *orchestrator.Response `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "draft-appeal-docx",
		Method:       http.MethodPost,
		Path:         "/appeals/docx",
		Summary:      "Draft an appeal as a Word document",
		MaxBodyBytes: maxBody,
		Errors:       errs,
	}, func(ctx context.Context, input *struct {
		Body appealRequestDTO
	}) (*docxOutput, error) {
		resp, err := cfg.Drafter.Run(ctx, input.Body.toRequest())
		if err != nil {
			cfg.Logger.Warn("appeal failed", zap.Error(err))
			return nil, handleError(err)
		}
		data, err := render.DOCX(resp.MergedDocument.Content, resp.Instructions)
		if err != nil {
			return nil, handleError(err)
		}
		return &docxOutput{
			ContentType:        render.MIMEType,
			ContentDisposition: fmt.Sprintf(`attachment; filename="recurso-%s.docx"`, resp.RequestID),
			RequestID:          resp.RequestID,
			Body:               data,
		}, nil
	})
}

type docxOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	RequestID          string `header:"X-Request-Id"`
	Body               []byte
}

func registerDeadline(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "compute-deadline",
		Method:      http.MethodPost,
		Path:        "/deadline",
		Summary:     "Compute the appeal deadline from a fine's text",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body deadlineRequestDTO
	}) (*struct {
		Body deadlineResponseDTO `json:"body"`
	}, error) {
		today, ok := input.Body.today(cfg.now())
		if !ok {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "today must be YYYY-MM-DD", nil)
		}
		return &struct {
			Body deadlineResponseDTO `json:"body"`
		}{Body: deadlineResponseDTO{Deadline: cfg.Deadlines.ComputeAt(input.Body.Text, today)}}, nil
	})
}
