// Package parser turns the line-oriented text description of a Mealy or Moore
// machine into a validated domain model.
//
// Mealy text has one line per state. Each line lists, for every input, the
// next state and the emitted output:
//
//	1 0 0 1    # q0: on 0 -> q1 / 0, on 1 -> q0 / 1
//	0 1 1 0    # q1: on 0 -> q0 / 1, on 1 -> q1 / 0
//
// Moore text starts with the output of every state; each following line gives,
// for one input, the destination of every state (column-major):
//
//	0 1        # outputs of q0, q1
//	1 0        # input 0: q0 -> q1, q1 -> q0
//	0 1        # input 1: q0 -> q0, q1 -> q1
//
// State references are zero-based indices written as "3" or "q3". Parsed
// states are always named q0, q1, ... in declaration order, the same scheme
// every emitted table uses, so output text can be parsed back.
package parser

import (
	"strconv"
	"strings"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// Parser converts raw text into machines.
type Parser struct {
	limits Limits
}

// Option configures a Parser.
type Option func(*Parser)

// WithLimits bounds accepted machines. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(p *Parser) {
		p.limits = l
	}
}

// New creates a parser instance.
func New(opts ...Option) *Parser {
	p := &Parser{limits: DefaultLimits}
	for _, opt := range opts {
		opt(p)
	}
	p.limits = p.limits.orDefault()
	return p
}

// Limits returns the effective limits.
func (p *Parser) Limits() Limits {
	return p.limits
}

// StateName is the positional name of the i-th declared state.
func StateName(i int) string {
	return "q" + strconv.Itoa(i)
}

// Parse dispatches on kind.
func (p *Parser) Parse(kind domain.MachineKind, text string) (domain.Machine, error) {
	switch kind {
	case domain.MachineMealy:
		return p.ParseMealy(text)
	case domain.MachineMoore:
		return p.ParseMoore(text)
	default:
		return nil, domain.Errorf(domain.KindUnsupportedDirection, domain.StageParse, "unknown machine kind %q", kind)
	}
}

// ParseMealy parses the Mealy row format.
func (p *Parser) ParseMealy(text string) (*domain.Mealy, error) {
	rows, err := p.lines(text)
	if err != nil {
		return nil, err
	}
	n := len(rows)
	if err := p.limits.checkShape(n, 0); err != nil {
		return nil, err
	}

	k := 0
	transitions := make([][]domain.MealyEdge, n)
	for s, row := range rows {
		if len(row.tokens)%2 != 0 {
			return nil, domain.LineErrorf(domain.KindRowWidth, domain.StageParse, row.no,
				"%d tokens cannot form next_state/output pairs", len(row.tokens))
		}
		pairs := len(row.tokens) / 2
		if s == 0 {
			k = pairs
			if err := p.limits.checkShape(n, k); err != nil {
				return nil, err
			}
		} else if pairs != k {
			return nil, domain.LineErrorf(domain.KindRowWidth, domain.StageParse, row.no,
				"expected %d next_state/output pairs, got %d", k, pairs)
		}

		edges := make([]domain.MealyEdge, k)
		for i := 0; i < k; i++ {
			to, err := stateRef(row.tokens[2*i], row.no, n)
			if err != nil {
				return nil, err
			}
			out, err := output(row.tokens[2*i+1], row.no)
			if err != nil {
				return nil, err
			}
			edges[i] = domain.MealyEdge{To: StateName(to), Output: out}
		}
		transitions[s] = edges
	}

	states := make([]string, n)
	for i := range states {
		states[i] = StateName(i)
	}
	m, err := domain.NewMealy(states, transitions)
	if err != nil {
		return nil, domain.WithStage(err, domain.StageParse)
	}
	return m, nil
}

// ParseMoore parses the Moore outputs-then-columns format.
func (p *Parser) ParseMoore(text string) (*domain.Moore, error) {
	rows, err := p.lines(text)
	if err != nil {
		return nil, err
	}

	head, columns := rows[0], rows[1:]
	if len(columns) == 0 {
		return nil, domain.LineErrorf(domain.KindRowWidth, domain.StageParse, head.no,
			"expected at least one transition line after the output line")
	}

	n, k := len(columns[0].tokens), len(columns)
	if err := p.limits.checkShape(max(n, len(head.tokens)), k); err != nil {
		return nil, err
	}
	for _, col := range columns[1:] {
		if len(col.tokens) != n {
			return nil, domain.LineErrorf(domain.KindRowWidth, domain.StageParse, col.no,
				"expected %d destinations, got %d", n, len(col.tokens))
		}
	}
	if len(head.tokens) != n {
		return nil, domain.LineErrorf(domain.KindRowWidth, domain.StageParse, head.no,
			"output line lists %d states but transition lines describe %d", len(head.tokens), n)
	}

	states := make([]domain.MooreState, n)
	for s, tok := range head.tokens {
		out, err := output(tok, head.no)
		if err != nil {
			return nil, err
		}
		states[s] = domain.MooreState{Name: StateName(s), Output: out}
	}

	transitions := make(map[string][]string, n)
	for s := range states {
		transitions[StateName(s)] = make([]string, k)
	}
	for i, col := range columns {
		for s, tok := range col.tokens {
			to, err := stateRef(tok, col.no, n)
			if err != nil {
				return nil, err
			}
			transitions[StateName(s)][i] = StateName(to)
		}
	}

	m, err := domain.NewMoore(states, transitions, k)
	if err != nil {
		return nil, domain.WithStage(err, domain.StageParse)
	}
	return m, nil
}

type line struct {
	no     int
	tokens []string
}

func (p *Parser) lines(text string) ([]line, error) {
	clean, err := sanitize(text, p.limits.MaxBytes)
	if err != nil {
		return nil, err
	}

	var out []line
	for i, raw := range strings.Split(clean, "\n") {
		if idx := strings.IndexByte(raw, '#'); idx >= 0 {
			raw = raw[:idx]
		}
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		out = append(out, line{no: i + 1, tokens: fields})
	}
	if len(out) == 0 {
		return nil, domain.Errorf(domain.KindEmptyInput, domain.StageParse, "input contains no machine description")
	}
	return out, nil
}

func stateRef(tok string, lineNo, n int) (int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(tok, "q"), "Q")
	idx, err := strconv.Atoi(digits)
	if err != nil || digits == "" || digits[0] == '+' {
		return 0, &domain.Error{
			Kind:    domain.KindMalformedToken,
			Stage:   domain.StageParse,
			Line:    lineNo,
			Message: "state reference " + strconv.Quote(tok) + " is not a state index",
		}
	}
	if idx < 0 || idx >= n {
		return 0, domain.LineErrorf(domain.KindInvalidModel, domain.StageParse, lineNo,
			"state reference %s is outside q0..q%d", tok, n-1)
	}
	return idx, nil
}

func output(tok string, lineNo int) (int, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, domain.LineErrorf(domain.KindMalformedToken, domain.StageParse, lineNo,
			"output %q is not an integer", tok)
	}
	return v, nil
}
