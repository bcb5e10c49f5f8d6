package domain

// Machine is implemented by *Mealy and *Moore.
type Machine interface {
	Kind() MachineKind
	Validate() error
	Run(inputs []int) ([]int, error)
	Trace(inputs []int) ([]string, error)
}

var (
	_ Machine = (*Mealy)(nil)
	_ Machine = (*Moore)(nil)
)

// MealyEdge is the (destination, output) pair of one Mealy transition.
type MealyEdge struct {
	To     string `json:"to"`
	Output int    `json:"output"`
}

// Mealy is a Mealy machine. States[0] is the start state.
// Transitions[s][i] is the edge taken from States[s] on input i.
//
// Values are treated as immutable once built: converters and serializers
// only read them.
type Mealy struct {
	States      []string
	Transitions [][]MealyEdge
	Inputs      int
}

// NewMealy builds and validates a Mealy machine.
func NewMealy(states []string, transitions [][]MealyEdge) (*Mealy, error) {
	m := &Mealy{States: states, Transitions: transitions}
	if len(transitions) > 0 {
		m.Inputs = len(transitions[0])
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Kind implements Machine.
func (m *Mealy) Kind() MachineKind { return MachineMealy }

// Start returns the name of the start state.
func (m *Mealy) Start() string {
	return m.States[0]
}

// Validate checks referential integrity and table completeness.
func (m *Mealy) Validate() error {
	if m == nil || len(m.States) == 0 {
		return Errorf(KindInvalidModel, StageValidation, "machine has no states")
	}
	if m.Inputs < 1 {
		return Errorf(KindInvalidModel, StageValidation, "machine must have at least one input, got %d", m.Inputs)
	}
	index, err := indexNames(m.States)
	if err != nil {
		return err
	}
	if len(m.Transitions) != len(m.States) {
		return Errorf(KindInvalidModel, StageValidation,
			"transition table has %d rows for %d states", len(m.Transitions), len(m.States))
	}
	for s, row := range m.Transitions {
		if len(row) != m.Inputs {
			return Errorf(KindInvalidModel, StageValidation,
				"state %q has %d transitions, want %d", m.States[s], len(row), m.Inputs)
		}
		for i, e := range row {
			if _, ok := index[e.To]; !ok {
				return Errorf(KindInvalidModel, StageValidation,
					"state %q on input %d goes to undeclared state %q", m.States[s], i, e.To)
			}
		}
	}
	return nil
}

// Run feeds inputs from the start state and returns the output emitted on
// each transition.
func (m *Mealy) Run(inputs []int) ([]int, error) {
	outputs, _, err := m.walk(inputs)
	return outputs, err
}

// Trace returns the states visited while consuming inputs, start state included.
func (m *Mealy) Trace(inputs []int) ([]string, error) {
	_, trace, err := m.walk(inputs)
	return trace, err
}

func (m *Mealy) walk(inputs []int) ([]int, []string, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, WithStage(err, StageSimulate)
	}
	index, _ := indexNames(m.States)

	cur := 0
	outputs := make([]int, 0, len(inputs))
	trace := append(make([]string, 0, len(inputs)+1), m.States[cur])
	for step, in := range inputs {
		if in < 0 || in >= m.Inputs {
			return nil, nil, Errorf(KindInvalidModel, StageSimulate,
				"step %d: input %d outside alphabet 0..%d", step, in, m.Inputs-1)
		}
		e := m.Transitions[cur][in]
		outputs = append(outputs, e.Output)
		cur = index[e.To]
		trace = append(trace, m.States[cur])
	}
	return outputs, trace, nil
}

// MooreState is a Moore state and the output it emits on entry.
// Origin names the Mealy state it was split from, when it came from a conversion.
type MooreState struct {
	Name   string `json:"name"`
	Output int    `json:"output"`
	Origin string `json:"origin,omitempty"`
}

// Moore is a Moore machine. States[0] is the start state.
// Transitions maps a state name to its destinations, one per input index.
type Moore struct {
	States      []MooreState
	Transitions map[string][]string
	Inputs      int
}

// NewMoore builds and validates a Moore machine.
func NewMoore(states []MooreState, transitions map[string][]string, inputs int) (*Moore, error) {
	m := &Moore{States: states, Transitions: transitions, Inputs: inputs}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Kind implements Machine.
func (m *Moore) Kind() MachineKind { return MachineMoore }

// Start returns the name of the start state.
func (m *Moore) Start() string {
	return m.States[0].Name
}

// Names returns state names in declaration order.
func (m *Moore) Names() []string {
	names := make([]string, len(m.States))
	for i, s := range m.States {
		names[i] = s.Name
	}
	return names
}

// Outputs returns a name -> output lookup.
func (m *Moore) Outputs() map[string]int {
	out := make(map[string]int, len(m.States))
	for _, s := range m.States {
		out[s.Name] = s.Output
	}
	return out
}

// Validate checks referential integrity and table completeness.
func (m *Moore) Validate() error {
	if m == nil || len(m.States) == 0 {
		return Errorf(KindInvalidModel, StageValidation, "machine has no states")
	}
	if m.Inputs < 1 {
		return Errorf(KindInvalidModel, StageValidation, "machine must have at least one input, got %d", m.Inputs)
	}
	index, err := indexNames(m.Names())
	if err != nil {
		return err
	}
	for name := range m.Transitions {
		if _, ok := index[name]; !ok {
			return Errorf(KindInvalidModel, StageValidation, "transitions given for undeclared state %q", name)
		}
	}
	for _, s := range m.States {
		row, ok := m.Transitions[s.Name]
		if !ok {
			return Errorf(KindInvalidModel, StageValidation, "state %q has no transitions", s.Name)
		}
		if len(row) != m.Inputs {
			return Errorf(KindInvalidModel, StageValidation,
				"state %q has %d transitions, want %d", s.Name, len(row), m.Inputs)
		}
		for i, to := range row {
			if _, ok := index[to]; !ok {
				return Errorf(KindInvalidModel, StageValidation,
					"state %q on input %d goes to undeclared state %q", s.Name, i, to)
			}
		}
	}
	return nil
}

// Run feeds inputs from the start state and returns the output observed after
// each step. The start state's own output is not included.
func (m *Moore) Run(inputs []int) ([]int, error) {
	trace, err := m.Trace(inputs)
	if err != nil {
		return nil, err
	}
	outputs := m.Outputs()
	res := make([]int, 0, len(inputs))
	for _, name := range trace[1:] {
		res = append(res, outputs[name])
	}
	return res, nil
}

// Trace returns the states visited while consuming inputs, start state included.
func (m *Moore) Trace(inputs []int) ([]string, error) {
	if err := m.Validate(); err != nil {
		return nil, WithStage(err, StageSimulate)
	}
	cur := m.Start()
	trace := append(make([]string, 0, len(inputs)+1), cur)
	for step, in := range inputs {
		if in < 0 || in >= m.Inputs {
			return nil, Errorf(KindInvalidModel, StageSimulate,
				"step %d: input %d outside alphabet 0..%d", step, in, m.Inputs-1)
		}
		cur = m.Transitions[cur][in]
		trace = append(trace, cur)
	}
	return trace, nil
}

func indexNames(names []string) (map[string]int, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" {
			return nil, Errorf(KindInvalidModel, StageValidation, "state %d has an empty name", i)
		}
		if _, dup := index[n]; dup {
			return nil, Errorf(KindInvalidModel, StageValidation, "duplicate state name %q", n)
		}
		index[n] = i
	}
	return index, nil
}
