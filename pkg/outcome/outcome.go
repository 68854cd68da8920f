// Package outcome defines the result of a worker run and the codec
// boundary that carries task descriptors and outcomes across the
// process channel.
package outcome

import (
	"fmt"
	"runtime/debug"
)

// RemoteFailure captures an error at the worker's exit point so the
// supervisor can reconstruct an informative error without the original
// error type existing in the parent process.
type RemoteFailure struct {
	Type    string // concrete Go type of the original error
	Message string
	Trace   string // formatted stack of where the failure was captured
}

func (f *RemoteFailure) String() string {
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

// Outcome is the tagged result of a worker run: either a success value
// or a remote failure, never both.
type Outcome struct {
	Value   any
	Failure *RemoteFailure
}

// Success wraps a task's return value.
func Success(value any) Outcome {
	return Outcome{Value: value}
}

// Failed wraps a captured remote failure.
func Failed(failure *RemoteFailure) Outcome {
	return Outcome{Failure: failure}
}

// IsSuccess reports whether the outcome carries a value rather than a
// failure.
func (o Outcome) IsSuccess() bool {
	return o.Failure == nil
}

// CaptureFailure records err as a RemoteFailure at the current call
// site, including the worker-side stack.
func CaptureFailure(err error) *RemoteFailure {
	return &RemoteFailure{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Trace:   string(debug.Stack()),
	}
}
