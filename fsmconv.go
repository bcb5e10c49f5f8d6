package fsmconv

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/parser"
	"github.com/aretw0/fsmconv/pkg/pipeline"
	"github.com/aretw0/fsmconv/pkg/ports"
)

var _ ports.Converter = (*Engine)(nil)

// Engine is the high-level entry point for the fsmconv library.
// It wraps the conversion pipeline and provides a simplified API for consumers.
type Engine struct {
	pipeline  *pipeline.Pipeline
	limits    parser.Limits
	naming    convert.Naming
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	selfCheck bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLimits bounds the size of accepted machines.
func WithLimits(l parser.Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithNaming selects how Moore states produced by MealyToMoore are labelled.
func WithNaming(n convert.Naming) Option {
	return func(e *Engine) {
		e.naming = n
	}
}

// WithSelfCheck verifies every conversion for output equivalence and panics
// when it does not hold.
func WithSelfCheck(enabled bool) Option {
	return func(e *Engine) {
		e.selfCheck = enabled
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{limits: parser.DefaultLimits}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	eng.pipeline = pipeline.New(
		pipeline.WithLogger(eng.logger),
		pipeline.WithLimits(eng.limits),
		pipeline.WithNaming(eng.naming),
		pipeline.WithLifecycleHooks(eng.hooks),
		pipeline.WithSelfCheck(eng.selfCheck),
	)
	return eng
}

// Convert parses text and converts it in the given direction.
func (e *Engine) Convert(ctx context.Context, dir domain.Direction, text string) (*pipeline.Result, error) {
	return e.pipeline.Run(ctx, dir, text)
}

// MealyToMoore converts a Mealy text description.
func (e *Engine) MealyToMoore(ctx context.Context, text string) (*pipeline.Result, error) {
	return e.pipeline.Run(ctx, domain.MealyToMoore, text)
}

// MooreToMealy converts a Moore text description.
func (e *Engine) MooreToMealy(ctx context.Context, text string) (*pipeline.Result, error) {
	return e.pipeline.Run(ctx, domain.MooreToMealy, text)
}

// Simulate feeds inputs to the machine described by text.
func (e *Engine) Simulate(ctx context.Context, kind domain.MachineKind, text string, inputs []int) (*pipeline.Simulation, error) {
	return e.pipeline.Simulate(ctx, kind, text, inputs)
}

// Validate parses text and returns the machine it describes.
func (e *Engine) Validate(ctx context.Context, kind domain.MachineKind, text string) (domain.Machine, error) {
	return e.pipeline.Validate(ctx, kind, text)
}

// Limits returns the effective input limits.
func (e *Engine) Limits() parser.Limits {
	return e.pipeline.Limits()
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
