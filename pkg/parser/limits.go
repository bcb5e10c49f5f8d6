package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// Limits bound the size of a machine accepted by the parser.
type Limits struct {
	MaxBytes  int `yaml:"max_bytes" env:"MAX_BYTES"`
	MaxStates int `yaml:"max_states" env:"MAX_STATES"`
	MaxInputs int `yaml:"max_inputs" env:"MAX_INPUTS"`
}

// DefaultLimits are applied when no limits are configured.
var DefaultLimits = Limits{
	MaxBytes:  1 << 20,
	MaxStates: 1024,
	MaxInputs: 64,
}

// orDefault fills zero fields from DefaultLimits.
func (l Limits) orDefault() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultLimits.MaxBytes
	}
	if l.MaxStates <= 0 {
		l.MaxStates = DefaultLimits.MaxStates
	}
	if l.MaxInputs <= 0 {
		l.MaxInputs = DefaultLimits.MaxInputs
	}
	return l
}

func (l Limits) checkShape(states, inputs int) error {
	if states > l.MaxStates {
		return domain.Errorf(domain.KindTooLarge, domain.StageParse,
			"machine has %d states, limit is %d", states, l.MaxStates)
	}
	if inputs > l.MaxInputs {
		return domain.Errorf(domain.KindTooLarge, domain.StageParse,
			"machine has %d inputs per state, limit is %d", inputs, l.MaxInputs)
	}
	return nil
}

// sanitize enforces the byte limit, validates UTF-8 and replaces control
// characters other than newline, tab and carriage return with a space, so a
// stray control character still separates the tokens around it.
func sanitize(input string, limit int) (string, error) {
	if len(input) > limit {
		// Rejected rather than truncated: a truncated table would parse as a different machine.
		return "", domain.Errorf(domain.KindTooLarge, domain.StageParse,
			"input is %d bytes, limit is %d", len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", domain.Errorf(domain.KindMalformedToken, domain.StageParse, "input contains invalid UTF-8")
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	out := make([]rune, 0, len(input))
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
