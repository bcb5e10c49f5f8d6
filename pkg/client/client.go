// Package client consumes the fsmconv HTTP API and decodes its responses back
// into domain machines.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/fsmconv/pkg/codec"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/pipeline"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Kind    string
	Stage   string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("fsmconv api: %d %s (%s at %s)", e.Status, e.Message, e.Kind, e.Stage)
	}
	return fmt.Sprintf("fsmconv api: %d %s", e.Status, e.Message)
}

// Is lets errors.Is match an APIError against the domain sentinels.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*domain.Error)
	return ok && t.Message == "" && string(t.Kind) == e.Kind
}

// MealyToMooreResult is the decoded response of POST /mealy-to-moore.
type MealyToMooreResult struct {
	Original  *domain.Mealy
	Converted *domain.Moore
}

// MooreToMealyResult is the decoded response of POST /moore-to-mealy.
type MooreToMealyResult struct {
	Original  *domain.Moore
	Converted *domain.Mealy
}

// Client talks to one fsmconv server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Original  json.RawMessage `json:"original"`
	Converted json.RawMessage `json:"converted"`
}

// MealyToMoore converts a Mealy text description on the server.
func (c *Client) MealyToMoore(ctx context.Context, text string) (*MealyToMooreResult, error) {
	var env envelope
	if err := c.post(ctx, "/mealy-to-moore", map[string]string{"input_text": text}, &env); err != nil {
		return nil, err
	}
	original, err := codec.DecodeMealy(env.Original)
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}
	converted, err := codec.DecodeMoore(env.Converted)
	if err != nil {
		return nil, fmt.Errorf("decode converted: %w", err)
	}
	return &MealyToMooreResult{Original: original, Converted: converted}, nil
}

// MooreToMealy converts a Moore text description on the server.
func (c *Client) MooreToMealy(ctx context.Context, text string) (*MooreToMealyResult, error) {
	var env envelope
	if err := c.post(ctx, "/moore-to-mealy", map[string]string{"input_text": text}, &env); err != nil {
		return nil, err
	}
	original, err := codec.DecodeMoore(env.Original)
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}
	converted, err := codec.DecodeMealy(env.Converted)
	if err != nil {
		return nil, fmt.Errorf("decode converted: %w", err)
	}
	return &MooreToMealyResult{Original: original, Converted: converted}, nil
}

// Simulate runs inputs through a machine on the server.
func (c *Client) Simulate(ctx context.Context, kind domain.MachineKind, text string, inputs []int) (*pipeline.Simulation, error) {
	body := map[string]any{"input_text": text, "kind": string(kind), "inputs": inputs}
	var sim pipeline.Simulation
	if err := c.post(ctx, "/simulate", body, &sim); err != nil {
		return nil, err
	}
	return &sim, nil
}

// Health reports whether the server answers GET /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) post(ctx context.Context, path string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
		Stage string `json:"stage"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message, apiErr.Kind, apiErr.Stage = body.Error, body.Kind, body.Stage
	}
	return apiErr
}
