// Package worker drives the child side of a run: the lifecycle state
// machine reported over the channel and the cooperative cancellation
// engine executing the task.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/psantana5/runproc/pkg/logging"
	"github.com/psantana5/runproc/pkg/outcome"
	"github.com/psantana5/runproc/pkg/proto"
	"github.com/psantana5/runproc/pkg/task"
)

// Exit statuses of a worker process.
const (
	ExitSuccess     = 0
	ExitFailure     = 1 // task or lifecycle failure, transmitted in FINISHED
	ExitInterrupted = 2 // unswallowed soft interrupt
	// A hard terminate exits with the signal's numeric value.
)

// Config is built explicitly by the process entry point. The file
// descriptor numbers arrive on the command line; the entry point turns
// them into the two channel halves before calling Run.
type Config struct {
	ParentPID  int
	FromParent io.ReadCloser
	ToParent   io.WriteCloser
	Codec      outcome.Codec
	Log        *logging.Logger

	// flags overrides live signal installation in tests.
	flags *signalFlags
}

// Run drives the worker through its lifecycle and returns the process
// exit status. The caller is expected to pass it straight to os.Exit.
//
// The state sequence on the happy path is INITIALIZED, WAIT_EXEC_DATA,
// BOOTING, STARTED, EXECUTING, STOPPING, FINISHED. Every failure path
// still emits STOPPING and then exactly one FINISHED carrying the
// failure; only a hard terminate skips FINISHED entirely.
func Run(cfg Config) int {
	log := cfg.Log
	if log == nil {
		log = logging.New(logging.INFO, false)
	}
	log = log.WithField("pid", os.Getpid())

	defer cfg.ToParent.Close()

	// INITIALIZING is the implicit state at entry.
	if err := proto.WriteInitialized(cfg.ToParent, os.Getpid()); err != nil {
		log.Error("channel write failed", map[string]any{"error": err.Error()})
		return ExitFailure
	}
	log.Debug("initialized", map[string]any{"parent_pid": cfg.ParentPID})

	value, runErr := execute(cfg, log)

	// STOPPING is emitted unconditionally on every exit path.
	if err := proto.WriteState(cfg.ToParent, proto.StateStopping); err != nil {
		log.Error("channel write failed", map[string]any{"error": err.Error()})
	}

	var forced *ForcedExitError
	if errors.As(runErr, &forced) {
		// Abandoned, not unwound: no FINISHED payload on this path.
		return forced.ExitCode()
	}

	code := ExitSuccess
	var result outcome.Outcome
	if runErr != nil {
		result = outcome.Failed(outcome.CaptureFailure(runErr))
		code = ExitFailure
		if errors.Is(runErr, task.ErrInterrupted) {
			code = ExitInterrupted
		}
		log.Error("task failed", map[string]any{"error": runErr.Error()})
	} else {
		result = outcome.Success(value)
	}

	payload, err := cfg.Codec.EncodeOutcome(result)
	if err != nil {
		// The value cannot cross the codec boundary; report that
		// failure instead so the supervisor still gets an outcome.
		log.Error("outcome encoding failed", map[string]any{"error": err.Error()})
		payload, err = cfg.Codec.EncodeOutcome(outcome.Failed(outcome.CaptureFailure(err)))
		if err != nil {
			return ExitFailure
		}
		code = ExitFailure
	}

	if err := proto.WriteFinished(cfg.ToParent, payload); err != nil {
		log.Error("channel write failed", map[string]any{"error": err.Error()})
		return ExitFailure
	}
	return code
}

// execute walks the states between INITIALIZED and the task settling.
// Any error return becomes a failure short-circuit to STOPPING.
func execute(cfg Config, log *logging.Logger) (any, error) {
	if err := proto.WriteState(cfg.ToParent, proto.StateWaitExecData); err != nil {
		return nil, err
	}

	frame, err := proto.ReadFrame(cfg.FromParent)
	cfg.FromParent.Close()
	if err != nil {
		return nil, fmt.Errorf("receive task descriptor: %w", err)
	}
	desc, err := cfg.Codec.DecodeDescriptor(frame)
	if err != nil {
		return nil, err
	}

	if err := proto.WriteState(cfg.ToParent, proto.StateBooting); err != nil {
		return nil, err
	}
	fn, ok := task.Lookup(desc.Name)
	if !ok {
		return nil, fmt.Errorf("unknown task %q", desc.Name)
	}
	log.Debug("task resolved", map[string]any{"task": desc.Name})

	if err := proto.WriteState(cfg.ToParent, proto.StateStarted); err != nil {
		return nil, err
	}

	// Signal listeners exist only from EXECUTING onward; before this
	// point SIGINT and SIGTERM keep their default disposition.
	flags := cfg.flags
	if flags == nil {
		flags = installSignalFlags()
		defer flags.uninstall()
	}

	if err := proto.WriteState(cfg.ToParent, proto.StateExecuting); err != nil {
		return nil, err
	}

	runner := NewRunner(flags, log)
	return runner.Run(context.Background(), fn, desc.Args)
}
