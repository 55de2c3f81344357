package errors

import (
	stderrors "errors"
	"fmt"
)

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Record == nil {
		return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EditError reports a rejected configuration edit.
type EditError struct {
	Path string
	Err  error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("edit %q: %v", e.Path, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// Parsing errors
var (
	ErrInvalidFieldCount      = fmt.Errorf("invalid field count")
	ErrInvalidDailyLeads      = fmt.Errorf("invalid daily leads")
	ErrInvalidUnresolvedLeads = fmt.Errorf("invalid unresolved leads")
	ErrEmptyID                = fmt.Errorf("empty channel id")
	ErrDuplicateChannel       = fmt.Errorf("duplicate channel id")
	ErrInvalidScenario        = fmt.Errorf("invalid scenario")
)

// Editing errors
var (
	ErrUnknownChannel = fmt.Errorf("unknown channel")
	ErrUnknownField   = fmt.Errorf("unknown field")
	ErrUnknownPreset  = fmt.Errorf("unknown preset")
	ErrUnknownOp      = fmt.Errorf("unknown operation")
	ErrInvalidValue   = fmt.Errorf("invalid value")
	ErrInvalidEdit    = fmt.Errorf("invalid edit message")
)

// Computation errors
var (
	ErrNonFiniteResult = fmt.Errorf("result is not a finite number")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
