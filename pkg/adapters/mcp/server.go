package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/fsmconv"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/ports"
)

// FormatsURI is the resource describing the accepted text formats.
const FormatsURI = "fsmconv://formats"

// ConvertResponse aligns with the HTTP response body.
type ConvertResponse struct {
	Original  any `json:"original" jsonschema_description:"The parsed input machine"`
	Converted any `json:"converted" jsonschema_description:"The equivalent machine in the other model"`
}

// SimulateResponse aligns with the HTTP response body.
type SimulateResponse struct {
	Outputs []int    `json:"outputs" jsonschema_description:"Output observed at each step"`
	Trace   []string `json:"trace" jsonschema_description:"Visited states, starting with the start state"`
}

type convertArgs struct {
	InputText string `mapstructure:"input_text"`
}

type simulateArgs struct {
	InputText string `mapstructure:"input_text"`
	Kind      string `mapstructure:"kind"`
	Inputs    string `mapstructure:"inputs"`
}

// Server wraps a Converter and exposes it as an MCP Server.
type Server struct {
	conv           ports.Converter
	logger         *slog.Logger
	mcpServer      *server.MCPServer
	allowedOrigins []string
}

// Option configures the Server.
type Option func(*Server)

// WithAllowedOrigins sets the origins the SSE transport answers cross-origin
// requests for. "*" allows any origin. Without it only same-origin callers
// can reach the SSE endpoints from a browser.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(conv ports.Converter, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		conv:      conv,
		logger:    logger,
		mcpServer: server.NewMCPServer("fsmconv-mcp", strings.TrimSpace(fsmconv.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", s.cors(sseServer.SSEHandler()))
	mux.Handle("/message", s.cors(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(s.allowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (anyOrigin || slices.Contains(s.allowedOrigins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("mealy_to_moore",
		mcp.WithDescription("Convert a Mealy machine, given in the line-oriented text format, to an output-equivalent Moore machine. Read "+FormatsURI+" for the format."),
		mcp.WithString("input_text", mcp.Required(), mcp.Description("One line per state: next_state output pairs for every input")),
		mcp.WithOutputSchema[ConvertResponse](),
	), mcp.NewStructuredToolHandler(s.convertHandler(domain.MealyToMoore)))

	s.mcpServer.AddTool(mcp.NewTool("moore_to_mealy",
		mcp.WithDescription("Convert a Moore machine, given in the line-oriented text format, to an output-equivalent Mealy machine. Read "+FormatsURI+" for the format."),
		mcp.WithString("input_text", mcp.Required(), mcp.Description("First line: state outputs. Then one line per input listing every state's destination")),
		mcp.WithOutputSchema[ConvertResponse](),
	), mcp.NewStructuredToolHandler(s.convertHandler(domain.MooreToMealy)))

	s.mcpServer.AddTool(mcp.NewTool("simulate",
		mcp.WithDescription("Run an input sequence through a Mealy or Moore machine and return the outputs and visited states."),
		mcp.WithString("input_text", mcp.Required(), mcp.Description("Machine description")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Machine model"), mcp.Enum(string(domain.MachineMealy), string(domain.MachineMoore))),
		mcp.WithString("inputs", mcp.Required(), mcp.Description("JSON array of input symbols, e.g. [0,1,1]")),
		mcp.WithOutputSchema[SimulateResponse](),
	), mcp.NewStructuredToolHandler(s.handleSimulate))
}

func (s *Server) convertHandler(dir domain.Direction) func(context.Context, mcp.CallToolRequest, map[string]interface{}) (ConvertResponse, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConvertResponse, error) {
		var in convertArgs
		if err := mapstructure.Decode(args, &in); err != nil {
			return ConvertResponse{}, fmt.Errorf("invalid arguments: %w", err)
		}

		res, err := s.conv.Convert(ctx, dir, in.InputText)
		if err != nil {
			s.logger.Warn("MCP convert rejected", "direction", string(dir), "error", err)
			return ConvertResponse{}, err
		}
		return ConvertResponse{Original: res.Original, Converted: res.Converted}, nil
	}
}

func (s *Server) handleSimulate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SimulateResponse, error) {
	var in simulateArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return SimulateResponse{}, fmt.Errorf("invalid arguments: %w", err)
	}

	var inputs []int
	if in.Inputs != "" {
		if err := json.Unmarshal([]byte(in.Inputs), &inputs); err != nil {
			return SimulateResponse{}, fmt.Errorf("inputs must be a JSON array of integers: %w", err)
		}
	}

	sim, err := s.conv.Simulate(ctx, domain.MachineKind(in.Kind), in.InputText, inputs)
	if err != nil {
		return SimulateResponse{}, err
	}
	return SimulateResponse{Outputs: sim.Outputs, Trace: sim.Trace}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FormatsURI, "Machine text formats",
		mcp.WithResourceDescription("How to write Mealy and Moore machines for the conversion tools"),
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FormatsURI,
				MIMEType: "text/markdown",
				Text:     formatsDoc,
			},
		}, nil
	})
}

const formatsDoc = `# Machine text formats

States are numbered from 0 in declaration order and may be written as ` + "`3`" + ` or ` + "`q3`" + `.
State 0 is the start state. Outputs are integers. ` + "`#`" + ` starts a comment.

## Mealy

One line per state. For every input symbol 0..k-1, the line lists the next state and the
output emitted on that transition:

    1 0 0 1    # q0: on 0 -> q1 / 0, on 1 -> q0 / 1
    0 1 1 0    # q1: on 0 -> q0 / 1, on 1 -> q1 / 0

## Moore

The first line lists the output of every state. Each following line is one input symbol and
lists the destination of every state:

    0 1        # outputs of q0, q1
    1 0        # input 0: q0 -> q1, q1 -> q0
    0 1        # input 1: q0 -> q0, q1 -> q1
`
