// Package convert implements the Mealy <-> Moore transformations.
//
// MealyToMoore splits every Mealy state into one Moore state per distinct
// output on its incoming edges, plus a dedicated start state with no history.
// MooreToMealy pushes the output of each destination state onto the edge that
// enters it. Both conversions preserve the observable output sequence, with
// the one-step shift between the models: a Moore machine reports output after
// entering a state, a Mealy machine while taking the edge.
//
// Converters are pure functions of their input and are safe for concurrent use.
package convert

import (
	"fmt"
	"strconv"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// StartOutput is the output assigned to the synthetic start state produced by
// MealyToMoore. It is never observed by Run, which drops the initial output.
const StartOutput = 0

// Naming selects how split Moore states are labelled.
type Naming int

const (
	// NamingSequential labels states q0, q1, ... in discovery order.
	NamingSequential Naming = iota
	// NamingComposite labels states <mealy state>/<incoming output>, the start
	// state as <mealy state>/-.
	NamingComposite
)

// String implements fmt.Stringer.
func (n Naming) String() string {
	switch n {
	case NamingSequential:
		return "sequential"
	case NamingComposite:
		return "composite"
	default:
		return "Naming(" + strconv.Itoa(int(n)) + ")"
	}
}

// ParseNaming maps a config string to a Naming.
func ParseNaming(s string) (Naming, error) {
	switch s {
	case "", "sequential":
		return NamingSequential, nil
	case "composite":
		return NamingComposite, nil
	default:
		return 0, fmt.Errorf("unknown naming scheme %q", s)
	}
}

// Option configures a conversion.
type Option func(*options)

type options struct {
	naming Naming
}

// WithNaming selects the Moore state labelling scheme.
func WithNaming(n Naming) Option {
	return func(o *options) {
		o.naming = n
	}
}

// class is the (mealy state, incoming output) key of a split Moore state.
// start marks the synthetic no-history class of the start state.
type class struct {
	state  int
	output int
	start  bool
}

// MealyToMoore converts m into an output-equivalent Moore machine.
func MealyToMoore(m *domain.Mealy, opts ...Option) (*domain.Moore, error) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := m.Validate(); err != nil {
		return nil, domain.WithStage(err, domain.StageConvert)
	}

	index := make(map[string]int, len(m.States))
	for i, s := range m.States {
		index[s] = i
	}

	// Distinct incoming outputs per destination, in first-seen edge order.
	incoming := make([][]int, len(m.States))
	seen := make(map[class]bool)
	for _, row := range m.Transitions {
		for _, e := range row {
			c := class{state: index[e.To], output: e.Output}
			if !seen[c] {
				seen[c] = true
				incoming[c.state] = append(incoming[c.state], e.Output)
			}
		}
	}

	order := []class{{state: 0, output: StartOutput, start: true}}
	for s, outs := range incoming {
		for _, o := range outs {
			order = append(order, class{state: s, output: o})
		}
	}

	names := label(m, order, cfg.naming)
	ids := make(map[class]string, len(order))
	for i, c := range order {
		ids[c] = names[i]
	}

	states := make([]domain.MooreState, len(order))
	transitions := make(map[string][]string, len(order))
	for i, c := range order {
		states[i] = domain.MooreState{Name: names[i], Output: c.output, Origin: m.States[c.state]}
		row := make([]string, m.Inputs)
		for in, e := range m.Transitions[c.state] {
			dst, ok := ids[class{state: index[e.To], output: e.Output}]
			if !ok {
				panic(fmt.Sprintf("convert: no Moore state for edge %s --%d/%d--> %s", m.States[c.state], in, e.Output, e.To))
			}
			row[in] = dst
		}
		transitions[names[i]] = row
	}

	out := &domain.Moore{States: states, Transitions: transitions, Inputs: m.Inputs}
	mustValid(out)
	return out, nil
}

// MooreToMealy converts m into an output-equivalent Mealy machine with the
// same states.
func MooreToMealy(m *domain.Moore) (*domain.Mealy, error) {
	if err := m.Validate(); err != nil {
		return nil, domain.WithStage(err, domain.StageConvert)
	}

	outputs := m.Outputs()
	names := m.Names()
	transitions := make([][]domain.MealyEdge, len(names))
	for s, name := range names {
		row := make([]domain.MealyEdge, m.Inputs)
		for in, to := range m.Transitions[name] {
			row[in] = domain.MealyEdge{To: to, Output: outputs[to]}
		}
		transitions[s] = row
	}

	out := &domain.Mealy{States: names, Transitions: transitions, Inputs: m.Inputs}
	mustValid(out)
	return out, nil
}

func label(m *domain.Mealy, order []class, naming Naming) []string {
	names := make([]string, len(order))
	if naming != NamingComposite {
		for i := range order {
			names[i] = "q" + strconv.Itoa(i)
		}
		return names
	}

	// The suffix never contains '/', so splitting at the last '/' recovers the
	// class and labels stay unique even when state ids contain '/'.
	for i, c := range order {
		suffix := strconv.Itoa(c.output)
		if c.start {
			suffix = "-"
		}
		names[i] = m.States[c.state] + "/" + suffix
	}
	return names
}

// mustValid is a post-condition on converter output; a failure is a bug here,
// not a property of the input.
func mustValid(m domain.Machine) {
	if err := m.Validate(); err != nil {
		panic(fmt.Sprintf("convert: produced invalid %s machine: %v", m.Kind(), err))
	}
}
