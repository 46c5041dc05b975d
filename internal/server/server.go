package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"automate/internal/automation"
	"automate/internal/domain"
	"automate/internal/engine"
	"automate/internal/repo"
)

// EventSource serves the change log. It is optional.
type EventSource interface {
	LatestEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error)
}

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Events   EventSource
	BasePath string
	Auth     AuthConfig
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"flow f1: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope shared by every route.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the automate control plane.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine.Flows == nil || cfg.Engine.Staging == nil || cfg.Engine.Automation == nil {
		return nil, errors.New("server: engine is not wired")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/automate"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, log))
	hcfg := huma.DefaultConfig("Automate API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerEngine(group, cfg.Engine)
	registerCatalog(group, cfg.Engine)
	registerFlows(group, cfg.Engine)
	registerFlowActions(group, cfg.Engine)
	registerStaging(group, cfg.Engine)
	if cfg.Events != nil {
		registerEvents(group, cfg.Events)
	}
	registerOpenAPI(router, api, basePath, cfg.Auth.enabled())

	return router, nil
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, automation.ErrNotInitialized):
		return newAPIError(http.StatusConflict, "engine_not_initialized", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string, secured bool) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			if secured {
				applyAuthSecurity(oas, basePath)
			}
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Automate API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerEngine(api huma.API, e engine.Engine) {
	type statusOutput struct {
		Body EngineStatusResponse `json:"body"`
	}
	status := func() *statusOutput {
		return &statusOutput{Body: EngineStatusResponse{Running: e.Automation.Running()}}
	}

	huma.Register(api, huma.Operation{
		OperationID:   "start-engine",
		Method:        http.MethodPost,
		Path:          "/engine",
		Summary:       "Initialize and start the automation engine",
		Tags:          []string{"engine"},
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*statusOutput, error) {
		if err := e.StartAutomation(ctx); err != nil {
			return nil, handleError(err)
		}
		return status(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "stop-engine",
		Method:        http.MethodDelete,
		Path:          "/engine",
		Summary:       "Stop the automation engine",
		Tags:          []string{"engine"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, _ *struct{}) (*statusOutput, error) {
		e.StopAutomation()
		return status(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "engine-status",
		Method:      http.MethodGet,
		Path:        "/engine",
		Summary:     "Automation engine status",
		Tags:        []string{"engine"},
	}, func(ctx context.Context, _ *struct{}) (*statusOutput, error) {
		return status(), nil
	})
}

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-services",
		Method:      http.MethodGet,
		Path:        "/services",
		Summary:     "List services known to the automation engine",
		Tags:        []string{"catalog"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []automation.Service `json:"body"`
	}, error) {
		items := e.Services()
		if items == nil {
			items = []automation.Service{}
		}
		return &struct {
			Body []automation.Service `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-methods",
		Method:      http.MethodGet,
		Path:        "/methods",
		Summary:     "List every method of every service",
		Tags:        []string{"catalog"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []automation.Method `json:"body"`
	}, error) {
		return &struct {
			Body []automation.Method `json:"body"`
		}{Body: e.Methods()}, nil
	})
}

func registerEvents(api huma.API, src EventSource) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent flow changes",
		Tags:        []string{"events"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type"`
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit" default:"50"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		items, err := src.LatestEvents(ctx, repo.EventFilters{
			Limit:    normalizeLimit(input.Limit),
			Type:     input.Type,
			EntityID: input.EntityID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: EventsResponse{Items: items}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 500 {
		return 500
	}
	return in
}
