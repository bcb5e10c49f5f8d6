package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a client-input failure.
type Kind string

const (
	KindEmptyInput           Kind = "empty_input"
	KindRowWidth             Kind = "row_width"
	KindMalformedToken       Kind = "malformed_token"
	KindInvalidModel         Kind = "invalid_model"
	KindTooLarge             Kind = "too_large"
	KindUnsupportedDirection Kind = "unsupported_direction"
)

// Stage names the step of a conversion run where an error was raised.
type Stage string

const (
	StageReceived   Stage = "received"
	StageParse      Stage = "parse"
	StageConvert    Stage = "convert"
	StageSerialize  Stage = "serialize"
	StageSimulate   Stage = "simulate"
	StageValidation Stage = "validate"
)

// Error is a client-input error. All conversion failures caused by the caller's
// text or model are reported as *Error; anything else is an internal fault.
type Error struct {
	Kind    Kind
	Stage   Stage
	Line    int // 1-based source line, 0 when not applicable
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind, so errors.Is(err, ErrRowWidth) holds for any
// row width failure regardless of stage or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrEmptyInput           = &Error{Kind: KindEmptyInput}
	ErrRowWidth             = &Error{Kind: KindRowWidth}
	ErrMalformedToken       = &Error{Kind: KindMalformedToken}
	ErrInvalidModel         = &Error{Kind: KindInvalidModel}
	ErrTooLarge             = &Error{Kind: KindTooLarge}
	ErrUnsupportedDirection = &Error{Kind: KindUnsupportedDirection}
)

// Errorf builds an *Error for the given kind and stage.
func Errorf(kind Kind, stage Stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// LineErrorf builds an *Error pinned to a source line.
func LineErrorf(kind Kind, stage Stage, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Line: line, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsClientError reports whether err was caused by invalid caller input.
func IsClientError(err error) bool {
	_, ok := AsError(err)
	return ok
}

// WithStage returns a copy of err re-tagged with stage. Non-domain errors are
// returned unchanged.
func WithStage(err error, stage Stage) error {
	e, ok := AsError(err)
	if !ok {
		return err
	}
	cp := *e
	cp.Stage = stage
	return &cp
}
