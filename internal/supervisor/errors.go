package supervisor

import (
	"fmt"

	"github.com/psantana5/runproc/pkg/outcome"
)

// RemoteError reconstructs a failure that happened inside a worker
// process. The original error type does not exist in this process, so
// the error carries its name, message and origin trace instead.
type RemoteError struct {
	Type    string
	Message string
	Trace   string
}

func newRemoteError(f *outcome.RemoteFailure) *RemoteError {
	return &RemoteError{
		Type:    f.Type,
		Message: f.Message,
		Trace:   f.Trace,
	}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Type, e.Message)
}

// Remote marks the error as remotely originated.
func (e *RemoteError) Remote() bool { return true }

// ProtocolError reports malformed or truncated channel data, or a
// stream that ended before FINISHED. Fatal to the call; never retried.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("channel protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TerminatedError reports that the worker process ended without sending
// an outcome because a hard terminate (or an external kill) took it
// down. ExitCode carries the numeric signal on the terminate path.
type TerminatedError struct {
	ExitCode int
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("worker terminated with exit status %d", e.ExitCode)
}
