package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/fsmconv"
	"github.com/aretw0/fsmconv/pkg/adapters/memory"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/observability"
	"github.com/aretw0/fsmconv/pkg/parser"
	"github.com/aretw0/fsmconv/pkg/pipeline"
)

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestMealyToMoore(t *testing.T) {
	h := NewHandler(fsmconv.New())

	w := post(t, h, "/mealy-to-moore", `{"input_text": "1 1 0 0\n0 0 1 1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Original struct {
			States      []string `json:"states"`
			Transitions []struct {
				From, To, Input, Output string
			} `json:"transitions"`
		} `json:"original"`
		Converted struct {
			States []struct {
				Name   string `json:"name"`
				Output int    `json:"output"`
			} `json:"states"`
			Transitions    map[string][]string `json:"transitions"`
			InputsPerState int                 `json:"inputs_per_state"`
		} `json:"converted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, []string{"q0", "q1"}, resp.Original.States)
	assert.Len(t, resp.Original.Transitions, 4)
	assert.Len(t, resp.Converted.States, 3)
	assert.Equal(t, 2, resp.Converted.InputsPerState)
	assert.Equal(t, []string{"q1", "q2"}, resp.Converted.Transitions["q2"])
}

func TestMooreToMealy(t *testing.T) {
	h := NewHandler(fsmconv.New())

	w := post(t, h, "/moore-to-mealy", `{"input_text": "0 1\n1 0"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"original": {
			"states": [{"name": "q0", "output": 0}, {"name": "q1", "output": 1}],
			"transitions": {"q0": ["q1"], "q1": ["q0"]},
			"inputs_per_state": 1
		},
		"converted": {
			"states": ["q0", "q1"],
			"transitions": [
				{"from": "q0", "to": "q1", "input": "0", "output": "1"},
				{"from": "q1", "to": "q0", "input": "0", "output": "0"}
			],
			"inputs_per_state": 1
		}
	}`, w.Body.String())
}

func TestConvertByPath(t *testing.T) {
	h := NewHandler(fsmconv.New())

	w := post(t, h, "/convert/moore-to-mealy", `{"input_text": "3\n0"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(t, h, "/convert/upside-down", `{"input_text": "3\n0"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, "unsupported_direction", e.Kind)
	assert.Equal(t, "received", e.Stage)

	// %zz is not a valid escape, so the path parameter cannot be bound.
	w = post(t, h, "/convert/%25zz", `{"input_text": "3\n0"}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	e = decodeError(t, w)
	assert.Equal(t, "bad_request", e.Kind)
	assert.Equal(t, "received", e.Stage)
	assert.Contains(t, e.Error, "direction")
}

func TestUnimplemented(t *testing.T) {
	h := Handler(Unimplemented{})

	w := post(t, h, "/convert/mealy-to-moore", `{}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = post(t, h, "/convert/%25zz", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid format for parameter direction")
}

func TestErrors(t *testing.T) {
	h := NewHandler(fsmconv.New(fsmconv.WithLimits(parser.Limits{MaxStates: 2})))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"empty input", "/mealy-to-moore", `{"input_text": ""}`, http.StatusBadRequest, "empty_input"},
		{"ragged rows", "/mealy-to-moore", `{"input_text": "1 0 1\n0 1 1 0"}`, http.StatusBadRequest, "row_width"},
		{"bad token", "/moore-to-mealy", `{"input_text": "0 x\n1 0"}`, http.StatusBadRequest, "malformed_token"},
		{"dangling", "/moore-to-mealy", `{"input_text": "0 1\n1 5"}`, http.StatusBadRequest, "invalid_model"},
		{"too many states", "/mealy-to-moore", `{"input_text": "0 0\n0 0\n0 0"}`, http.StatusRequestEntityTooLarge, "too_large"},
		{"not json", "/mealy-to-moore", `input_text=1`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			e := decodeError(t, w)
			assert.Equal(t, tt.kind, e.Kind)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	h := NewHandler(fsmconv.New(), WithLimits(parser.Limits{MaxBytes: 16}))

	big := `{"input_text": "` + strings.Repeat("0 0 ", 2000) + `"}`
	w := post(t, h, "/mealy-to-moore", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "too_large", decodeError(t, w).Kind)
}

func TestSimulate(t *testing.T) {
	h := NewHandler(fsmconv.New())

	w := post(t, h, "/simulate", `{"input_text": "1 1 0 0\n0 0 1 1", "kind": "mealy", "inputs": [0, 1, 0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"outputs": [1, 1, 0], "trace": ["q0", "q1", "q1", "q0"]}`, w.Body.String())

	w = post(t, h, "/simulate", `{"input_text": "0 0", "kind": "mealy", "inputs": [2]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "simulate", decodeError(t, w).Stage)
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(fsmconv.New())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "fsmconv-http", info["app"])
	assert.Equal(t, strings.TrimSpace(fsmconv.Version), info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Contains(t, w.Body.String(), "/mealy-to-moore")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Contains(t, w.Body.String(), "SwaggerUIBundle")
}

func TestOpenAPIDocument(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.NotNil(t, doc.Paths.Find("/convert/{direction}"))
}

func TestCORS(t *testing.T) {
	h := NewHandler(fsmconv.New())

	req := httptest.NewRequest(http.MethodOptions, "/mealy-to-moore", nil)
	req.Header.Set("Origin", DefaultAllowedOrigin)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DefaultAllowedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	h = NewHandler(fsmconv.New(), WithAllowedOrigins("*"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://evil.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	h := NewHandler(fsmconv.New(),
		WithRateLimiter(memory.NewRateLimiter(2, time.Minute)),
		WithMetrics(metrics),
	)

	for i := 0; i < 2; i++ {
		w := post(t, h, "/moore-to-mealy", `{"input_text": "0\n0"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := post(t, h, "/moore-to-mealy", `{"input_text": "0\n0"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decodeError(t, w).Error)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Health checks are not rate limited.
	for i := 0; i < 3; i++ {
		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "fsmconv_rate_limited_total 1")
}

type panicConverter struct{}

func (panicConverter) Convert(context.Context, domain.Direction, string) (*pipeline.Result, error) {
	panic("boom")
}

func (panicConverter) Simulate(context.Context, domain.MachineKind, string, []int) (*pipeline.Simulation, error) {
	return nil, context.DeadlineExceeded
}

func (panicConverter) Validate(context.Context, domain.MachineKind, string) (domain.Machine, error) {
	return nil, nil
}

func TestInternalFaults(t *testing.T) {
	h := NewHandler(panicConverter{})

	w := post(t, h, "/mealy-to-moore", `{"input_text": "0 0"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", decodeError(t, w).Kind)

	w = post(t, h, "/simulate", `{"input_text": "0 0", "kind": "mealy", "inputs": []}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeError(t, w).Error)
}
