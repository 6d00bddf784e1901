package engine

import (
	"errors"
	"fmt"
)

var (
	ErrBusy    = errors.New("engine request already in progress")
	ErrTimeout = errors.New("engine timed out")
	ErrFailed  = errors.New("engine failed")
)

type FailureReason int

const (
	ReasonTimeout FailureReason = iota + 1
	ReasonNoMove
	ReasonMalformedOutput
	ReasonIllegalMove
	ReasonProcessError
)

func (r FailureReason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonNoMove:
		return "no-move"
	case ReasonMalformedOutput:
		return "malformed-output"
	case ReasonIllegalMove:
		return "illegal-move"
	case ReasonProcessError:
		return "process-error"
	default:
		return "unknown"
	}
}

// Failure is returned for every request that did not produce a legal move.
// It matches ErrTimeout or ErrFailed with errors.Is.
type Failure struct {
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("engine %s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("engine %s", f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return f.Reason == ReasonTimeout
	case ErrFailed:
		return f.Reason != ReasonTimeout
	}
	return false
}

func fail(reason FailureReason, format string, args ...any) *Failure {
	return &Failure{Reason: reason, Err: fmt.Errorf(format, args...)}
}
