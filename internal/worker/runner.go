package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/psantana5/runproc/pkg/logging"
	"github.com/psantana5/runproc/pkg/task"
)

// ForcedExitError reports that a hard terminate signal ended the run.
// The task was abandoned, not unwound; the process must exit with the
// signal's numeric value and no outcome is transmitted.
type ForcedExitError struct {
	Signal os.Signal
}

func (e *ForcedExitError) Error() string {
	return fmt.Sprintf("terminated by signal %v", e.Signal)
}

// ExitCode returns the process exit status for the terminate signal.
func (e *ForcedExitError) ExitCode() int {
	return signalNumber(e.Signal)
}

// Runner executes one task while listening for the interrupt and
// terminate flags. It is the cooperative cancellation engine: the task
// itself decides what a soft interrupt means, the runner only decides
// the race between completion, interrupt and terminate.
type Runner struct {
	interrupt <-chan os.Signal
	terminate <-chan os.Signal
	log       *logging.Logger
}

// NewRunner wires a runner to the given signal flags.
func NewRunner(flags *signalFlags, log *logging.Logger) *Runner {
	return &Runner{
		interrupt: flags.interrupt,
		terminate: flags.terminate,
		log:       log,
	}
}

type taskResult struct {
	value any
	err   error
}

// Run executes fn to settlement. The task goroutine is shielded: the
// result channel is buffered so the goroutine can always deliver and
// is never torn down by the runner, even when the run is abandoned.
//
// Interrupt flag arrival clears the flag and delivers one interrupt
// into the task at its next suspension point, then the race resumes:
// the task may keep running, return a value (the run's successful
// result), or fail. Terminate flag arrival wins over a simultaneously
// ready completion and aborts the run with a ForcedExitError.
func (r *Runner) Run(ctx context.Context, fn task.Func, args []any) (any, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tctx := task.NewContext(runCtx)
	done := make(chan taskResult, 1)
	go func() {
		value, err := fn(tctx, args)
		done <- taskResult{value: value, err: err}
	}()

	for {
		select {
		case res := <-done:
			// When completion and terminate become ready together the
			// select picks at random; terminate must still win, so the
			// flag gets a last look before the result is honored.
			select {
			case sig := <-r.terminate:
				return r.abandon(sig, cancel)
			default:
			}
			return res.value, res.err
		case <-r.interrupt:
			// Flag consumed (cleared). Deliver at the task's next
			// suspension point and race again: the task may swallow
			// it or settle in response.
			r.log.Debug("interrupt signal received, delivering to task")
			tctx.NotifyInterrupt()
		case sig := <-r.terminate:
			return r.abandon(sig, cancel)
		}
	}
}

// abandon gives up on the running task. The task goroutine is left to
// its cancelled context; no outcome will be transmitted.
func (r *Runner) abandon(sig os.Signal, cancel context.CancelFunc) (any, error) {
	r.log.Warn("terminate signal received, abandoning task",
		map[string]any{"signal": fmt.Sprint(sig)})
	cancel()
	return nil, &ForcedExitError{Signal: sig}
}
