package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/fsmconv"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/observability"
	"github.com/aretw0/fsmconv/pkg/parser"
	"github.com/aretw0/fsmconv/pkg/ports"
)

//go:generate go tool oapi-codegen -package http -generate chi-server -o api.gen.go openapi.yaml

// DefaultAllowedOrigin is the web front end served during development.
const DefaultAllowedOrigin = "http://localhost:3000"

// bodySlack covers the JSON envelope around input_text.
const bodySlack = 4 << 10

// ConvertRequest is the body of the conversion endpoints.
type ConvertRequest struct {
	InputText string `json:"input_text"`
}

// SimulateRequest is the body of POST /simulate.
type SimulateRequest struct {
	InputText string `json:"input_text"`
	Kind      string `json:"kind"`
	Inputs    []int  `json:"inputs"`
}

// ConvertParamsDirection is the {direction} path parameter of POST /convert/{direction}.
type ConvertParamsDirection = domain.Direction

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// Server serves the conversion API.
type Server struct {
	Converter ports.Converter
	Limiter   ports.RateLimiter
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	allowedOrigins []string
	maxBodyBytes   int64
}

var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithRateLimiter enables per-client rate limiting.
func WithRateLimiter(l ports.RateLimiter) Option {
	return func(s *Server) {
		s.Limiter = l
	}
}

// WithMetrics serves m on /metrics and counts rate-limited requests.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = l
	}
}

// WithAllowedOrigins sets the CORS origins. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithLimits sizes the request body limit from the parser limits.
func WithLimits(l parser.Limits) Option {
	return func(s *Server) {
		if l.MaxBytes > 0 {
			s.maxBodyBytes = int64(l.MaxBytes) + bodySlack
		}
	}
}

// NewHandler creates a new HTTP handler for the converter.
func NewHandler(conv ports.Converter, opts ...Option) http.Handler {
	s := &Server{
		Converter:      conv,
		allowedOrigins: []string{DefaultAllowedOrigin},
		maxBodyBytes:   int64(parser.DefaultLimits.MaxBytes) + bodySlack,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(s.cors)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	HandlerWithOptions(s, ChiServerOptions{
		BaseRouter:       r,
		Middlewares:      []MiddlewareFunc{s.rateLimit},
		ErrorHandlerFunc: s.paramError,
	})

	return r
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>fsmconv API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// MealyToMoore handles the POST /mealy-to-moore request.
func (s *Server) MealyToMoore(w http.ResponseWriter, r *http.Request) {
	s.convert(w, r, domain.MealyToMoore)
}

// MooreToMealy handles the POST /moore-to-mealy request.
func (s *Server) MooreToMealy(w http.ResponseWriter, r *http.Request) {
	s.convert(w, r, domain.MooreToMealy)
}

// Convert handles the POST /convert/{direction} request.
func (s *Server) Convert(w http.ResponseWriter, r *http.Request, direction ConvertParamsDirection) {
	s.convert(w, r, direction)
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request, dir domain.Direction) {
	var body ConvertRequest
	if !s.decode(w, r, &body) {
		return
	}

	res, err := s.Converter.Convert(r.Context(), dir, body.InputText)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Simulate handles the POST /simulate request.
func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	var body SimulateRequest
	if !s.decode(w, r, &body) {
		return
	}

	sim, err := s.Converter.Simulate(r.Context(), domain.MachineKind(body.Kind), body.InputText, body.Inputs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "fsmconv-http",
		"version":     strings.TrimSpace(fsmconv.Version),
		"api_version": apiVersion,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, domain.Errorf(domain.KindTooLarge, domain.StageReceived,
				"request body exceeds %d bytes", tooBig.Limit))
			return false
		}
		s.Logger.WarnContext(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: "bad_request", Stage: string(domain.StageReceived)})
		return false
	}
	return true
}

// paramError answers requests whose path parameters cannot be bound.
func (s *Server) paramError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.WarnContext(r.Context(), "invalid request parameter", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "bad_request", Stage: string(domain.StageReceived)})
}

// statusFor maps an error to the HTTP status of its response.
func statusFor(err error) int {
	e, ok := domain.AsError(err)
	switch {
	case !ok:
		return http.StatusInternalServerError
	case e.Kind == domain.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Kind: "internal"}
	if e, ok := domain.AsError(err); ok {
		resp.Kind, resp.Stage = string(e.Kind), string(e.Stage)
	} else {
		s.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
