// Package task defines the unit of work executed inside a worker process
// and the registry the worker uses to resolve task descriptors.
package task

import (
	"context"
	"errors"
)

// ErrInterrupted is the failure a task returns when it does not want to
// swallow a soft interrupt. A worker exits with status 2 when this error
// propagates out of the task.
var ErrInterrupted = errors.New("task interrupted")

// Func is a runnable task. It receives a Context whose Interrupt channel
// fires once per soft interrupt delivered to the worker. The task may
// ignore interrupts and keep running, return a value in response to one
// (a successful result), or return an error.
type Func func(ctx *Context, args []any) (any, error)

// Descriptor references a registered task by name along with its
// positional arguments. It is the only thing that crosses the codec
// boundary on the way into a worker.
type Descriptor struct {
	Name string
	Args []any
}

// Context carries cancellation and interrupt delivery into a running
// task. The embedded context is cancelled when the worker abandons the
// task under a hard terminate.
type Context struct {
	context.Context
	interrupt chan struct{}
}

// NewContext wraps parent with an interrupt delivery channel.
func NewContext(parent context.Context) *Context {
	return &Context{
		Context:   parent,
		interrupt: make(chan struct{}, 1),
	}
}

// Interrupt returns the channel the task should select on to observe
// soft interrupts. Each delivery is consumed by a single receive.
func (c *Context) Interrupt() <-chan struct{} {
	return c.interrupt
}

// NotifyInterrupt delivers one interrupt at the task's next suspension
// point. Deliveries coalesce while one is already pending; it reports
// whether the interrupt was queued.
func (c *Context) NotifyInterrupt() bool {
	select {
	case c.interrupt <- struct{}{}:
		return true
	default:
		return false
	}
}
