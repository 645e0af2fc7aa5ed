// Package errs holds the single error type every pipeline stage and the server report.
package errs

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind classifies where a failure originated.
type Kind int

const (
	KindUnknown  Kind = iota
	KindConfig        // configuration or file not found
	KindFetch         // remote object storage
	KindData          // malformed or missing input data
	KindTraining      // transform, search or evaluation
	KindInput         // serving-time form validation
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindFetch:
		return "fetch"
	case KindData:
		return "data"
	case KindTraining:
		return "training"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Error carries the kind, the message, where it was raised and the cause.
type Error struct {
	Kind Kind
	Msg  string
	File string
	Line int
	Err  error
}

// New records the caller's file and line next to msg and the wrapped cause.
func New(kind Kind, msg string, err error) error {
	e := &Error{Kind: kind, Msg: msg, Err: err}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	return e
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Error in %s , line %d : %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("Error in %s , line %d : %s: %v", e.File, e.Line, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
