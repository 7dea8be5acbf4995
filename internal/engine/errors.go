package engine

import (
	"errors"
	"fmt"
)

// Kind classifies executor failures for the HTTP layer.
type Kind string

const (
	KindFileUnreadable   Kind = "file_unreadable"
	KindValidationFailed Kind = "validation_failed"
	KindTimeout          Kind = "timeout"
	KindEngineError      Kind = "engine_error"
)

// Failure is a typed executor failure. The HTTP layer maps each kind to a
// status code; everything except engine_error is the caller's problem.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("engine: %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure unwraps err into a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
