// Package pipeline runs one conversion request end to end: parse the text,
// convert the machine, and serialize both sides for the response.
//
// A run moves through received -> parse -> convert -> serialize and either
// completes or fails at the first stage that returns an error. Nothing is
// retried and nothing is kept between runs.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/fsmconv/pkg/codec"
	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/parser"
)

// Result is the outcome of a successful run.
type Result struct {
	ID        string           `json:"-"`
	Direction domain.Direction `json:"-"`
	Original  any              `json:"original"`
	Converted any              `json:"converted"`

	// Source and Target are the parsed and converted models.
	Source domain.Machine `json:"-"`
	Target domain.Machine `json:"-"`
}

// Simulation is the outcome of feeding an input sequence to a machine.
type Simulation struct {
	Outputs []int    `json:"outputs"`
	Trace   []string `json:"trace"`
}

// Pipeline is safe for concurrent use; it holds configuration only.
type Pipeline struct {
	parser    *parser.Parser
	naming    convert.Naming
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	selfCheck bool
}

// Option configures a Pipeline.
type Option func(*config)

type config struct {
	limits    parser.Limits
	naming    convert.Naming
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	selfCheck bool
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLimits bounds the accepted input.
func WithLimits(l parser.Limits) Option {
	return func(c *config) {
		c.limits = l
	}
}

// WithNaming selects the Moore state labels produced by mealy-to-moore.
func WithNaming(n convert.Naming) Option {
	return func(c *config) {
		c.naming = n
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithSelfCheck verifies every conversion with convert.Equivalent and panics
// on a mismatch. Meant for tests and canary deployments.
func WithSelfCheck(enabled bool) Option {
	return func(c *config) {
		c.selfCheck = enabled
	}
}

// New builds a Pipeline.
func New(opts ...Option) *Pipeline {
	cfg := config{limits: parser.DefaultLimits}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		parser:    parser.New(parser.WithLimits(cfg.limits)),
		naming:    cfg.naming,
		hooks:     cfg.hooks,
		logger:    cfg.logger,
		selfCheck: cfg.selfCheck,
	}
}

// Limits returns the effective input limits.
func (p *Pipeline) Limits() parser.Limits {
	return p.parser.Limits()
}

// Run converts text in the given direction.
//
// Caller errors are returned as *domain.Error. A cancelled context is
// returned as ctx.Err() without wrapping.
func (p *Pipeline) Run(ctx context.Context, dir domain.Direction, text string) (*Result, error) {
	r := &run{
		p:       p,
		id:      uuid.NewString(),
		dir:     dir,
		started: time.Now(),
	}
	r.log = p.logger.With("run_id", r.id, "direction", string(dir))

	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, err)
	}
	if _, err := domain.ParseDirection(string(dir)); err != nil {
		return nil, r.fail(ctx, err)
	}
	r.stage(ctx, domain.StageReceived)

	source, err := p.parser.Parse(dir.Source(), text)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.stage(ctx, domain.StageParse)
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, err)
	}

	target, err := p.convert(dir, source)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.stage(ctx, domain.StageConvert)
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, err)
	}

	original, err := codec.Encode(source)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	converted, err := codec.Encode(target)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.stage(ctx, domain.StageSerialize)

	r.complete(ctx, target)
	return &Result{
		ID:        r.id,
		Direction: dir,
		Original:  original,
		Converted: converted,
		Source:    source,
		Target:    target,
	}, nil
}

// Simulate parses text as a machine of the given kind and feeds it inputs.
func (p *Pipeline) Simulate(ctx context.Context, kind domain.MachineKind, text string, inputs []int) (*Simulation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := domain.ParseMachineKind(string(kind)); err != nil {
		return nil, err
	}
	m, err := p.parser.Parse(kind, text)
	if err != nil {
		return nil, err
	}
	outputs, err := m.Run(inputs)
	if err != nil {
		return nil, err
	}
	trace, err := m.Trace(inputs)
	if err != nil {
		return nil, err
	}
	p.logger.DebugContext(ctx, "simulated machine", "kind", string(kind), "steps", len(inputs))
	return &Simulation{Outputs: outputs, Trace: trace}, nil
}

// Validate parses text as a machine of the given kind.
func (p *Pipeline) Validate(ctx context.Context, kind domain.MachineKind, text string) (domain.Machine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := domain.ParseMachineKind(string(kind)); err != nil {
		return nil, err
	}
	return p.parser.Parse(kind, text)
}

func (p *Pipeline) convert(dir domain.Direction, source domain.Machine) (domain.Machine, error) {
	switch dir {
	case domain.MealyToMoore:
		mealy := source.(*domain.Mealy)
		moore, err := convert.MealyToMoore(mealy, convert.WithNaming(p.naming))
		if err != nil {
			return nil, err
		}
		p.check(mealy, moore)
		return moore, nil
	default:
		moore := source.(*domain.Moore)
		mealy, err := convert.MooreToMealy(moore)
		if err != nil {
			return nil, err
		}
		p.check(mealy, moore)
		return mealy, nil
	}
}

func (p *Pipeline) check(mealy *domain.Mealy, moore *domain.Moore) {
	if !p.selfCheck {
		return
	}
	ok, counter, err := convert.Equivalent(mealy, moore)
	if err != nil {
		panic(fmt.Sprintf("pipeline: self-check failed: %v", err))
	}
	if !ok {
		panic(fmt.Sprintf("pipeline: converted machine diverges on input %v", counter))
	}
}

// run carries the per-request bookkeeping.
type run struct {
	p       *Pipeline
	id      string
	dir     domain.Direction
	started time.Time
	log     *slog.Logger
}

func (r *run) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: r.id}
}

func (r *run) stage(ctx context.Context, s domain.Stage) {
	r.log.DebugContext(ctx, "stage done", "stage", string(s))
	if r.p.hooks.OnStage != nil {
		r.p.hooks.OnStage(ctx, &domain.StageEvent{
			EventBase: r.base(domain.EventStage),
			Direction: r.dir,
			Stage:     s,
			Elapsed:   time.Since(r.started),
		})
	}
}

func (r *run) complete(ctx context.Context, target domain.Machine) {
	ev := &domain.RunEvent{
		EventBase: r.base(domain.EventComplete),
		Direction: r.dir,
		Duration:  time.Since(r.started),
	}
	switch m := target.(type) {
	case *domain.Mealy:
		ev.States, ev.Inputs = len(m.States), m.Inputs
	case *domain.Moore:
		ev.States, ev.Inputs = len(m.States), m.Inputs
	}
	r.log.InfoContext(ctx, "conversion done", "states", ev.States, "inputs", ev.Inputs, "duration", ev.Duration)
	if r.p.hooks.OnComplete != nil {
		r.p.hooks.OnComplete(ctx, ev)
	}
}

func (r *run) fail(ctx context.Context, err error) error {
	attrs := []any{"error", err}
	if e, ok := domain.AsError(err); ok {
		attrs = append(attrs, "stage", string(e.Stage), "kind", string(e.Kind))
	}
	r.log.WarnContext(ctx, "conversion failed", attrs...)
	if r.p.hooks.OnFailure != nil {
		r.p.hooks.OnFailure(ctx, &domain.RunEvent{
			EventBase: r.base(domain.EventFailure),
			Direction: r.dir,
			Duration:  time.Since(r.started),
			Err:       err,
		})
	}
	return err
}
