package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/runproc/pkg/task"
)

// Built-in tasks. They double as a demonstration of the three ways a
// task can answer a soft interrupt: finish early with a value, ignore
// it, or let it propagate.
func init() {
	task.MustRegister("echo", func(ctx *task.Context, args []any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprint(a)
		}
		return strings.Join(parts, " "), nil
	})

	// sleep waits for the given number of seconds. An interrupt ends
	// the sleep early with a successful partial result.
	task.MustRegister("sleep", func(ctx *task.Context, args []any) (any, error) {
		seconds, err := argSeconds(args)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-timer.C:
			return fmt.Sprintf("slept %.2fs", seconds), nil
		case <-ctx.Interrupt():
			return fmt.Sprintf("interrupted after %.2fs", time.Since(start).Seconds()), nil
		}
	})

	// stubborn-sleep swallows every interrupt and sleeps the full
	// duration anyway.
	task.MustRegister("stubborn-sleep", func(ctx *task.Context, args []any) (any, error) {
		seconds, err := argSeconds(args)
		if err != nil {
			return nil, err
		}
		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				return fmt.Sprintf("slept %.2fs", seconds), nil
			case <-ctx.Interrupt():
				// Ignored on purpose.
			}
		}
	})

	// fragile-sleep refuses to handle interrupts: the first one ends
	// the run as an interrupt failure and exit status 2.
	task.MustRegister("fragile-sleep", func(ctx *task.Context, args []any) (any, error) {
		seconds, err := argSeconds(args)
		if err != nil {
			return nil, err
		}
		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-timer.C:
			return fmt.Sprintf("slept %.2fs", seconds), nil
		case <-ctx.Interrupt():
			return nil, task.ErrInterrupted
		}
	})

	task.MustRegister("fail", func(ctx *task.Context, args []any) (any, error) {
		message := "task failed"
		if len(args) > 0 {
			message = fmt.Sprint(args[0])
		}
		return nil, fmt.Errorf("%s", message)
	})
}

func argSeconds(args []any) (float64, error) {
	if len(args) == 0 {
		return 1, nil
	}
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("bad duration %q: %w", v, err)
		}
		return seconds, nil
	default:
		return 0, fmt.Errorf("bad duration argument %v", v)
	}
}
