// Package codec maps domain machines to and from the JSON shapes served by
// the HTTP API and rendered by the web front end.
//
// Mealy machines travel as a flat list of transition tuples whose input and
// output are strings. Moore machines travel as a list of named states plus a
// state -> destinations table. Two Moore shapes exist in the wild: the
// canonical one lists states under "states", older responses used
// "moore_states". DecodeMoore accepts both.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// TransitionJSON is one Mealy edge.
type TransitionJSON struct {
	From   string `json:"from" mapstructure:"from"`
	To     string `json:"to" mapstructure:"to"`
	Input  string `json:"input" mapstructure:"input"`
	Output string `json:"output" mapstructure:"output"`
}

// MealyJSON is the wire shape of a Mealy machine.
type MealyJSON struct {
	States         []string         `json:"states" mapstructure:"states"`
	Transitions    []TransitionJSON `json:"transitions" mapstructure:"transitions"`
	InputsPerState int              `json:"inputs_per_state,omitempty" mapstructure:"inputs_per_state"`
}

// MooreStateJSON is one Moore state.
type MooreStateJSON struct {
	Name   string `json:"name" mapstructure:"name"`
	Output int    `json:"output" mapstructure:"output"`
	Origin string `json:"origin,omitempty" mapstructure:"origin"`
}

// MooreJSON is the canonical wire shape of a Moore machine.
type MooreJSON struct {
	States         []MooreStateJSON    `json:"states" mapstructure:"states"`
	Transitions    map[string][]string `json:"transitions" mapstructure:"transitions"`
	InputsPerState int                 `json:"inputs_per_state" mapstructure:"inputs_per_state"`
}

// mooreWire accepts both Moore shapes.
type mooreWire struct {
	MooreJSON   `mapstructure:",squash"`
	MooreStates []MooreStateJSON `mapstructure:"moore_states"`
}

// EncodeMealy emits k tuples per state, in state then input order.
func EncodeMealy(m *domain.Mealy) MealyJSON {
	out := MealyJSON{
		States:         append([]string(nil), m.States...),
		Transitions:    make([]TransitionJSON, 0, len(m.States)*m.Inputs),
		InputsPerState: m.Inputs,
	}
	for s, row := range m.Transitions {
		for i, e := range row {
			out.Transitions = append(out.Transitions, TransitionJSON{
				From:   m.States[s],
				To:     e.To,
				Input:  strconv.Itoa(i),
				Output: strconv.Itoa(e.Output),
			})
		}
	}
	return out
}

// EncodeMoore emits the canonical Moore shape.
func EncodeMoore(m *domain.Moore) MooreJSON {
	out := MooreJSON{
		States:         make([]MooreStateJSON, len(m.States)),
		Transitions:    make(map[string][]string, len(m.Transitions)),
		InputsPerState: m.Inputs,
	}
	for i, s := range m.States {
		out.States[i] = MooreStateJSON{Name: s.Name, Output: s.Output, Origin: s.Origin}
	}
	for name, row := range m.Transitions {
		out.Transitions[name] = append([]string(nil), row...)
	}
	return out
}

// Encode dispatches on the machine kind.
func Encode(m domain.Machine) (any, error) {
	switch v := m.(type) {
	case *domain.Mealy:
		return EncodeMealy(v), nil
	case *domain.Moore:
		return EncodeMoore(v), nil
	default:
		return nil, domain.Errorf(domain.KindInvalidModel, domain.StageSerialize, "cannot encode %T", m)
	}
}

// DecodeMealy rebuilds a validated Mealy machine. When inputs_per_state is
// absent, k is inferred as len(transitions)/len(states).
func DecodeMealy(data []byte) (*domain.Mealy, error) {
	var w MealyJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &domain.Error{Kind: domain.KindMalformedToken, Stage: domain.StageParse, Message: "invalid mealy json", Cause: err}
	}
	return w.Machine()
}

// Machine converts the wire shape into a validated Mealy machine.
func (w MealyJSON) Machine() (*domain.Mealy, error) {
	n := len(w.States)
	if n == 0 {
		return nil, domain.Errorf(domain.KindEmptyInput, domain.StageParse, "mealy json has no states")
	}
	if len(w.Transitions)%n != 0 {
		return nil, domain.Errorf(domain.KindRowWidth, domain.StageParse,
			"%d transitions cannot be spread evenly over %d states", len(w.Transitions), n)
	}
	perState := len(w.Transitions) / n
	k := w.InputsPerState
	switch {
	case k < 0:
		return nil, domain.Errorf(domain.KindInvalidModel, domain.StageParse, "inputs_per_state %d is negative", k)
	case k == 0:
		k = perState
	case k != perState:
		// Compared by division: k comes off the wire and n*k may overflow.
		return nil, domain.Errorf(domain.KindRowWidth, domain.StageParse,
			"expected %d inputs per state, got %d transitions for %d states", k, len(w.Transitions), n)
	}

	index := make(map[string]int, n)
	for i, s := range w.States {
		index[s] = i
	}
	rows := make([][]domain.MealyEdge, n)
	filled := make([][]bool, n)
	for s := range rows {
		rows[s] = make([]domain.MealyEdge, k)
		filled[s] = make([]bool, k)
	}

	for _, t := range w.Transitions {
		s, ok := index[t.From]
		if !ok {
			return nil, domain.Errorf(domain.KindInvalidModel, domain.StageParse, "transition from undeclared state %q", t.From)
		}
		in, err := strconv.Atoi(t.Input)
		if err != nil {
			return nil, domain.Errorf(domain.KindMalformedToken, domain.StageParse, "input %q is not an integer", t.Input)
		}
		if in < 0 || in >= k {
			return nil, domain.Errorf(domain.KindInvalidModel, domain.StageParse, "input %d outside 0..%d", in, k-1)
		}
		out, err := strconv.Atoi(t.Output)
		if err != nil {
			return nil, domain.Errorf(domain.KindMalformedToken, domain.StageParse, "output %q is not an integer", t.Output)
		}
		if filled[s][in] {
			return nil, domain.Errorf(domain.KindInvalidModel, domain.StageParse, "duplicate transition %s on input %d", t.From, in)
		}
		filled[s][in] = true
		rows[s][in] = domain.MealyEdge{To: t.To, Output: out}
	}

	m := &domain.Mealy{States: append([]string(nil), w.States...), Transitions: rows, Inputs: k}
	if err := m.Validate(); err != nil {
		return nil, domain.WithStage(err, domain.StageParse)
	}
	return m, nil
}

// DecodeMoore rebuilds a validated Moore machine from either wire shape.
// Outputs may be numbers or numeric strings.
func DecodeMoore(data []byte) (*domain.Moore, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.Error{Kind: domain.KindMalformedToken, Stage: domain.StageParse, Message: "invalid moore json", Cause: err}
	}

	var w mooreWire
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       integralFloats,
		Result:           &w,
	})
	if err != nil {
		return nil, fmt.Errorf("codec: build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, &domain.Error{Kind: domain.KindMalformedToken, Stage: domain.StageParse, Message: "moore json has unexpected field types", Cause: err}
	}

	if len(w.States) == 0 {
		w.States = w.MooreStates
	}
	return w.MooreJSON.Machine()
}

// integralFloats stops mapstructure from truncating JSON numbers such as 1.7
// into int fields.
func integralFloats(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 || to.Kind() != reflect.Int {
		return data, nil
	}
	f := data.(float64)
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	return data, nil
}

// Machine converts the wire shape into a validated Moore machine. A missing
// inputs_per_state is taken from the first transition row.
func (w MooreJSON) Machine() (*domain.Moore, error) {
	if len(w.States) == 0 {
		return nil, domain.Errorf(domain.KindEmptyInput, domain.StageParse, "moore json has no states")
	}
	k := w.InputsPerState
	if k == 0 {
		k = len(w.Transitions[w.States[0].Name])
	}

	states := make([]domain.MooreState, len(w.States))
	for i, s := range w.States {
		states[i] = domain.MooreState{Name: s.Name, Output: s.Output, Origin: s.Origin}
	}
	transitions := make(map[string][]string, len(w.Transitions))
	for name, row := range w.Transitions {
		transitions[name] = append([]string(nil), row...)
	}

	m, err := domain.NewMoore(states, transitions, k)
	if err != nil {
		return nil, domain.WithStage(err, domain.StageParse)
	}
	return m, nil
}
