package workflow

import (
	"errors"
	"fmt"

	"github.com/alexander-akhmetov/wbstrack/internal/lifecycle"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrValidation marks malformed input: a bad path, total <= 0,
	// completed outside [0, total], missing submitters.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition marks a status change that is not legal from the
	// current status. It is the same value as lifecycle.ErrInvalidTransition.
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
	// ErrPersistence marks a failed load or save.
	ErrPersistence = errors.New("persistence failed")
	// ErrDispatch marks a failed notification or reward. It never fails an
	// operation and is only reported through Result.DispatchErrors.
	ErrDispatch = errors.New("dispatch failed")
)

// Error describes a failed workflow operation.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // "assign", "submit", "review", "review-level", "resubmit-level", "notify", "award"
	Path string // node location, empty when not applicable
	Err  error
}

func (e *Error) Error() string {
	where := e.Op
	if e.Path != "" {
		where += " " + e.Path
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", where, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", where, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func validationErr(op, path, format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

func transitionErr(op, path string, err error) *Error {
	return &Error{Kind: ErrInvalidTransition, Op: op, Path: path, Err: err}
}
