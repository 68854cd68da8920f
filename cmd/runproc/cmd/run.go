package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/runproc/internal/diag"
	"github.com/psantana5/runproc/internal/report"
	"github.com/psantana5/runproc/internal/supervisor"
	"github.com/psantana5/runproc/pkg/logging"
	"github.com/psantana5/runproc/pkg/proto"
	"github.com/psantana5/runproc/pkg/task"
)

var (
	runJobFile   string
	runTimeout   time.Duration
	runDebugAddr string
	runStats     bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [task [args...]]",
	Short: "Run a registered task in a worker process",
	Long: `Run spawns a worker process for the given task and waits for its
outcome. Ctrl-C is forwarded to the worker as a soft interrupt, which
the task may ignore or answer with an early result; a second way to
stop is SIGTERM, which abandons the task and ends the worker
immediately.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runJobFile, "job", "", "YAML job file describing the task to run")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abandon the worker after this duration (0 = no timeout)")
	runCmd.Flags().StringVar(&runDebugAddr, "debug-addr", "", "serve /metrics, /status and /healthz on this address")
	runCmd.Flags().BoolVar(&runStats, "stats", false, "log worker process stats after completion")

	rootCmd.AddCommand(runCmd)
}

// jobSpec is the YAML shape accepted by --job.
type jobSpec struct {
	Task    string `yaml:"task"`
	Args    []any  `yaml:"args"`
	Timeout string `yaml:"timeout"`
}

func loadJobFile(path string) (task.Descriptor, time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Descriptor{}, 0, fmt.Errorf("read job file: %w", err)
	}
	var spec jobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return task.Descriptor{}, 0, fmt.Errorf("parse job file: %w", err)
	}
	if spec.Task == "" {
		return task.Descriptor{}, 0, errors.New("job file does not name a task")
	}
	var timeout time.Duration
	if spec.Timeout != "" {
		timeout, err = time.ParseDuration(spec.Timeout)
		if err != nil {
			return task.Descriptor{}, 0, fmt.Errorf("parse job timeout: %w", err)
		}
	}
	return task.Descriptor{Name: spec.Task, Args: spec.Args}, timeout, nil
}

func resolveDescriptor(args []string) (task.Descriptor, error) {
	if runJobFile != "" {
		desc, timeout, err := loadJobFile(runJobFile)
		if err != nil {
			return task.Descriptor{}, err
		}
		if runTimeout == 0 {
			runTimeout = timeout
		}
		return desc, nil
	}
	if len(args) == 0 {
		return task.Descriptor{}, errors.New("no task given: pass a task name or --job")
	}
	taskArgs := make([]any, len(args)-1)
	for i, a := range args[1:] {
		taskArgs[i] = a
	}
	return task.Descriptor{Name: args[0], Args: taskArgs}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	log := newLogger()

	desc, err := resolveDescriptor(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	metrics := report.NewMetrics(prometheus.DefaultRegisterer)
	sup, err := supervisor.New(supervisor.Config{
		Log:     log,
		Metrics: metrics,
		OnState: func(s proto.State) {
			log.Debug("worker state", map[string]any{"state": s.String()})
		},
	})
	if err != nil {
		return err
	}

	proc, err := sup.Start(ctx, desc)
	if err != nil {
		return err
	}

	if runDebugAddr != "" {
		server := diag.New(runDebugAddr, func() any {
			return map[string]any{
				"task":   desc.Name,
				"pid":    proc.Pid(),
				"states": stateNames(proc.States()),
			}
		}, log)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	stopForwarding := forwardSignals(proc, log)
	defer stopForwarding()

	value, err := proc.Wait(ctx)

	if runStats {
		if stats, statsErr := proc.Stats(); statsErr == nil {
			log.Info("worker stats", map[string]any{
				"rss_bytes": stats.RSSBytes,
				"uptime":    stats.Uptime.String(),
			})
		}
	}

	if err != nil {
		var remote *supervisor.RemoteError
		if errors.As(err, &remote) {
			log.Error("task failed remotely", map[string]any{
				"type":  remote.Type,
				"error": remote.Message,
			})
			log.Debug("remote trace", map[string]any{"trace": remote.Trace})
		}
		return err
	}

	fmt.Println(value)
	return nil
}

// forwardSignals relays the CLI's own SIGINT and SIGTERM to the worker
// so interactive Ctrl-C becomes a soft interrupt of the task.
func forwardSignals(proc *supervisor.Proc, log *logging.Logger) func() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigc:
				var err error
				if sig == syscall.SIGTERM {
					err = proc.Terminate()
				} else {
					err = proc.Interrupt()
				}
				if err != nil {
					log.Warn("signal forwarding failed", map[string]any{"error": err.Error()})
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigc)
		close(done)
	}
}

func stateNames(states []proto.State) []string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.String()
	}
	return names
}
