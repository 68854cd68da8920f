package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/psantana5/runproc/pkg/logging"
	"github.com/psantana5/runproc/pkg/task"
)

func testFlags() *signalFlags {
	return &signalFlags{
		interrupt: make(chan os.Signal, 1),
		terminate: make(chan os.Signal, 1),
	}
}

func testLogger() *logging.Logger {
	log := logging.New(logging.ERROR, false)
	log.SetOutput(io.Discard)
	return log
}

func TestRunnerNormalCompletion(t *testing.T) {
	runner := NewRunner(testFlags(), testLogger())

	value, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
		return "done", nil
	}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if value != "done" {
		t.Errorf("value = %v, want done", value)
	}
}

func TestRunnerPassesArgsAndErrors(t *testing.T) {
	runner := NewRunner(testFlags(), testLogger())

	wantErr := errors.New("boom")
	_, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
		if len(args) != 2 || args[0] != "a" || args[1] != 7 {
			t.Errorf("args = %v", args)
		}
		return nil, wantErr
	}, []any{"a", 7})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRunnerIgnoredInterruptsDoNotAffectOutcome(t *testing.T) {
	flags := testFlags()
	runner := NewRunner(flags, testLogger())

	release := make(chan struct{})
	delivered := make(chan struct{}, 8)

	resc := make(chan any, 1)
	errc := make(chan error, 1)
	go func() {
		v, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
			for {
				select {
				case <-ctx.Interrupt():
					// Swallow the interrupt and keep running.
					delivered <- struct{}{}
				case <-release:
					return 99, nil
				}
			}
		}, nil)
		resc <- v
		errc <- err
	}()

	// Deliver the soft interrupt three times; the task swallows each one.
	for i := 0; i < 3; i++ {
		flags.interrupt <- syscall.SIGINT
		select {
		case <-delivered:
		case <-time.After(5 * time.Second):
			t.Fatalf("interrupt %d never reached the task", i+1)
		}
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if v := <-resc; v != 99 {
		t.Errorf("value = %v, want 99", v)
	}
}

func TestRunnerInterruptMayReturnValue(t *testing.T) {
	flags := testFlags()
	runner := NewRunner(flags, testLogger())

	started := make(chan struct{})
	resc := make(chan any, 1)
	errc := make(chan error, 1)
	go func() {
		v, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
			close(started)
			<-ctx.Interrupt()
			// Settling in response to an interrupt is a success.
			return "partial result", nil
		}, nil)
		resc <- v
		errc <- err
	}()

	<-started
	flags.interrupt <- syscall.SIGINT

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not settle after interrupt")
	}
	if v := <-resc; v != "partial result" {
		t.Errorf("value = %v, want partial result", v)
	}
}

func TestRunnerInterruptMayPropagate(t *testing.T) {
	flags := testFlags()
	runner := NewRunner(flags, testLogger())

	started := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
			close(started)
			<-ctx.Interrupt()
			return nil, task.ErrInterrupted
		}, nil)
		errc <- err
	}()

	<-started
	flags.interrupt <- syscall.SIGINT

	select {
	case err := <-errc:
		if !errors.Is(err, task.ErrInterrupted) {
			t.Errorf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not settle after interrupt")
	}
}

func TestRunnerTerminateAbandonsTask(t *testing.T) {
	flags := testFlags()
	runner := NewRunner(flags, testLogger())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
			close(started)
			<-ctx.Done() // abandonment cancels the task context
			close(cancelled)
			return nil, ctx.Err()
		}, nil)
		errc <- err
	}()

	<-started
	flags.terminate <- syscall.SIGTERM

	var forced *ForcedExitError
	select {
	case err := <-errc:
		if !errors.As(err, &forced) {
			t.Fatalf("err = %v, want ForcedExitError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not settle after terminate")
	}
	if got := forced.ExitCode(); got != int(syscall.SIGTERM) {
		t.Errorf("exit code = %d, want %d", got, int(syscall.SIGTERM))
	}

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("task context was not cancelled on abandonment")
	}
}

func TestRunnerTerminateBeatsReadyCompletion(t *testing.T) {
	flags := testFlags()
	// The terminate flag is already set before the runner looks at
	// anything; it must win even though the task completes instantly.
	flags.terminate <- syscall.SIGTERM
	runner := NewRunner(flags, testLogger())

	_, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
		return "too late", nil
	}, nil)

	var forced *ForcedExitError
	if !errors.As(err, &forced) {
		t.Fatalf("err = %v, want ForcedExitError", err)
	}
	if got := forced.ExitCode(); got != int(syscall.SIGTERM) {
		t.Errorf("exit code = %d, want %d", got, int(syscall.SIGTERM))
	}
}

func TestRunnerTerminateWinsSimultaneousCompletion(t *testing.T) {
	// The flag is raised from inside the task just before it returns,
	// so completion and terminate become ready at the same moment.
	// Repeated runs exercise both orders the scheduler can pick.
	for i := 0; i < 2000; i++ {
		flags := testFlags()
		runner := NewRunner(flags, testLogger())

		value, err := runner.Run(context.Background(), func(ctx *task.Context, args []any) (any, error) {
			flags.terminate <- syscall.SIGTERM
			return "too fast", nil
		}, nil)

		var forced *ForcedExitError
		if !errors.As(err, &forced) {
			t.Fatalf("run %d: value = %v, err = %v, want ForcedExitError", i, value, err)
		}
		if got := forced.ExitCode(); got != int(syscall.SIGTERM) {
			t.Fatalf("run %d: exit code = %d, want %d", i, got, int(syscall.SIGTERM))
		}
	}
}
