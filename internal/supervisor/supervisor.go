// Package supervisor spawns worker processes, feeds them task
// descriptors, mirrors their lifecycle, and resolves the caller's run
// with the task's result or a reconstructed remote failure.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/runproc/internal/report"
	"github.com/psantana5/runproc/pkg/logging"
	"github.com/psantana5/runproc/pkg/outcome"
	"github.com/psantana5/runproc/pkg/proto"
	"github.com/psantana5/runproc/pkg/task"
)

// Config configures a Supervisor. Zero values pick working defaults:
// the current executable with a "worker" argument, the gob codec, and
// a stderr logger.
type Config struct {
	Codec      outcome.Codec
	Log        *logging.Logger
	Metrics    *report.Metrics
	Executable string   // worker binary, defaults to os.Executable()
	WorkerArgs []string // argv before the channel flags, defaults to ["worker"]
	Env        []string // extra environment entries for the worker
	OnState    func(proto.State)
}

// Supervisor is the parent-side orchestrator. One Supervisor can start
// any number of workers; each Run spawns exactly one process.
type Supervisor struct {
	cfg Config
}

// New creates a supervisor, filling config defaults.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Codec == nil {
		cfg.Codec = outcome.NewGobCodec()
	}
	if cfg.Log == nil {
		cfg.Log = logging.New(logging.INFO, false)
	}
	if cfg.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve worker executable: %w", err)
		}
		cfg.Executable = exe
	}
	if cfg.WorkerArgs == nil {
		cfg.WorkerArgs = []string{"worker"}
	}
	return &Supervisor{cfg: cfg}, nil
}

// Run spawns a worker for desc and blocks until it resolves.
func (s *Supervisor) Run(ctx context.Context, desc task.Descriptor) (any, error) {
	proc, err := s.Start(ctx, desc)
	if err != nil {
		return nil, err
	}
	return proc.Wait(ctx)
}

// Start spawns a worker process for desc and returns its handle. The
// descriptor is written immediately after spawn; ordering is enforced
// by the worker blocking its read until the frame arrives.
func (s *Supervisor) Start(ctx context.Context, desc task.Descriptor) (*Proc, error) {
	encoded, err := s.cfg.Codec.EncodeDescriptor(desc)
	if err != nil {
		return nil, err
	}

	// Parent→child carries the descriptor, child→parent the states.
	childRead, parentWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	parentRead, childWrite, err := os.Pipe()
	if err != nil {
		childRead.Close()
		parentWrite.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.cfg.Executable, s.workerArgv()...)
	cmd.ExtraFiles = []*os.File{childRead, childWrite} // fds 3 and 4
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Caller cancellation maps to the hard-terminate path.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		childRead.Close()
		childWrite.Close()
		parentRead.Close()
		parentWrite.Close()
		return nil, fmt.Errorf("spawn worker: %w", err)
	}

	// The child owns its copies now.
	childRead.Close()
	childWrite.Close()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.WorkerStarted()
	}
	log := s.cfg.Log.WithField("worker_pid", cmd.Process.Pid)
	log.Debug("worker spawned", map[string]any{"task": desc.Name})

	if err := proto.WriteFrame(parentWrite, encoded); err != nil {
		parentWrite.Close()
		parentRead.Close()
		cmd.Process.Signal(syscall.SIGTERM)
		cmd.Wait()
		return nil, fmt.Errorf("send task descriptor: %w", err)
	}
	parentWrite.Close()

	proc := &Proc{
		cmd:        cmd,
		spawnedPID: cmd.Process.Pid,
		watcher:    NewWatcher(cmd.Process.Pid),
		started:    time.Now(),
		result:     make(chan procResult, 1),
	}
	go proc.resolve(parentRead, s.cfg, log)
	return proc, nil
}

func (s *Supervisor) workerArgv() []string {
	argv := append([]string{}, s.cfg.WorkerArgs...)
	return append(argv,
		"--parent-pid", strconv.Itoa(os.Getpid()),
		"--fd-read", "3",
		"--fd-write", "4",
	)
}

type procResult struct {
	value any
	err   error
}

// Proc is the handle for one running worker process.
type Proc struct {
	cmd        *exec.Cmd
	spawnedPID int
	watcher    *Watcher
	started    time.Time
	result     chan procResult

	mu        sync.Mutex
	states    []proto.State
	remotePID int
}

// Pid returns the spawned process id.
func (p *Proc) Pid() int {
	return p.spawnedPID
}

// States returns the lifecycle states observed so far.
func (p *Proc) States() []proto.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]proto.State{}, p.states...)
}

// Alive reports whether the worker process still exists.
func (p *Proc) Alive() bool {
	return p.watcher.Alive()
}

// Stats samples the worker process, best effort.
func (p *Proc) Stats() (*Stats, error) {
	return p.watcher.Snapshot()
}

// Interrupt sends the soft interrupt. The task may swallow it.
func (p *Proc) Interrupt() error {
	return p.cmd.Process.Signal(syscall.SIGINT)
}

// Terminate sends the hard terminate. The worker abandons the task and
// exits with the signal's numeric value.
func (p *Proc) Terminate() error {
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

// Wait blocks until the worker resolves. It returns the task's value,
// or a *RemoteError for a task failure, a *TerminatedError for a hard
// terminate, or a *ProtocolError for a broken channel.
func (p *Proc) Wait(ctx context.Context) (any, error) {
	select {
	case res := <-p.result:
		p.result <- res // keep resolved for repeated Wait calls
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve consumes the state stream, reaps the process, and settles
// the result exactly once.
func (p *Proc) resolve(r *os.File, cfg Config, log *logging.Logger) {
	defer r.Close()

	payload, protoErr := p.consumeStates(r, cfg, log)
	waitErr := p.cmd.Wait()

	label := report.OutcomeSuccess
	res := func() procResult {
		if protoErr == nil {
			result, err := cfg.Codec.DecodeOutcome(payload)
			if err != nil {
				label = report.OutcomeProtocol
				return procResult{err: &ProtocolError{Op: "decode outcome", Err: err}}
			}
			if !result.IsSuccess() {
				label = report.OutcomeFailure
				log.Debug("remote failure", map[string]any{"type": result.Failure.Type})
				return procResult{err: newRemoteError(result.Failure)}
			}
			return procResult{value: result.Value}
		}

		// No FINISHED arrived. A nonzero exit status means the worker
		// was taken down (hard terminate or external kill); anything
		// else is a broken channel.
		if code := exitStatus(waitErr); code != 0 {
			label = report.OutcomeTerminated
			return procResult{err: &TerminatedError{ExitCode: code}}
		}
		if p.watcher.Alive() {
			log.Warn("channel closed but worker still running")
		}
		label = report.OutcomeProtocol
		return procResult{err: protoErr}
	}()

	if cfg.Metrics != nil {
		cfg.Metrics.WorkerFinished(label, time.Since(p.started).Seconds())
	}
	p.result <- res
}

// consumeStates reads state messages until FINISHED or stream end,
// returning the FINISHED payload. Out-of-order states and truncated
// messages are protocol errors.
func (p *Proc) consumeStates(r io.Reader, cfg Config, log *logging.Logger) ([]byte, error) {
	prev := proto.StateInitializing
	for {
		msg, err := proto.ReadMessage(r)
		if err == io.EOF {
			return nil, &ProtocolError{Op: "read state", Err: fmt.Errorf("stream ended before %s", proto.StateFinished)}
		}
		if err != nil {
			return nil, &ProtocolError{Op: "read state", Err: err}
		}
		if err := proto.ValidateTransition(prev, msg.State); err != nil {
			return nil, &ProtocolError{Op: "state order", Err: err}
		}
		prev = msg.State

		p.mu.Lock()
		p.states = append(p.states, msg.State)
		if msg.State == proto.StateInitialized {
			p.remotePID = msg.PID
		}
		p.mu.Unlock()

		log.Debug("worker state", map[string]any{"state": msg.State.String()})
		if cfg.Metrics != nil {
			cfg.Metrics.StateObserved(msg.State)
		}
		if cfg.OnState != nil {
			cfg.OnState(msg.State)
		}

		if msg.State == proto.StateInitialized && msg.PID != p.spawnedPID {
			log.Warn("worker reported unexpected pid",
				map[string]any{"reported": msg.PID, "spawned": p.spawnedPID})
		}
		if msg.State == proto.StateFinished {
			return msg.Payload, nil
		}
	}
}

// exitStatus extracts the process exit code from cmd.Wait's error.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
