package proto

import (
	"fmt"
)

// State represents the worker lifecycle state reported over the channel.
type State byte

// Strict worker lifecycle states
const (
	StateInitializing State = iota // Implicit entry state at process start
	StateInitialized               // Worker reported its PID to the supervisor
	StateWaitExecData              // Worker is blocked reading the task descriptor
	StateBooting                   // Descriptor decoded, runner about to start
	StateStarted                   // Runner started, about to invoke the task
	StateExecuting                 // Task is live, signal listeners installed
	StateStopping                  // Task settled, cleanup in progress
	StateFinished                  // Terminal, carries the encoded outcome
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateWaitExecData:
		return "wait_exec_data"
	case StateBooting:
		return "booting"
	case StateStarted:
		return "started"
	case StateExecuting:
		return "executing"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", byte(s))
	}
}

// validTransitions maps from-state to allowed to-states.
// States advance in order; the one exceptional path is the failure
// short-circuit, which jumps from any live state straight to Stopping.
var validTransitions = map[State]map[State]bool{
	StateInitializing: {
		StateInitialized: true,
		StateStopping:    true, // Initializing → Stopping (failure before handshake)
	},
	StateInitialized: {
		StateWaitExecData: true,
		StateStopping:     true, // Initialized → Stopping (failure short-circuit)
	},
	StateWaitExecData: {
		StateBooting:  true,
		StateStopping: true, // WaitExecData → Stopping (descriptor decode failed)
	},
	StateBooting: {
		StateStarted:  true,
		StateStopping: true, // Booting → Stopping (boot failure)
	},
	StateStarted: {
		StateExecuting: true,
		StateStopping:  true, // Started → Stopping (failure before task ran)
	},
	StateExecuting: {
		StateStopping: true, // Executing → Stopping (every exit path)
	},
	StateStopping: {
		StateFinished: true,
	},
	// Terminal state (no transitions allowed)
	StateFinished: {},
}

// ValidateTransition checks if a lifecycle state transition is valid
func ValidateTransition(from, to State) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if the state is terminal (no further transitions)
func IsTerminal(s State) bool {
	return s == StateFinished
}

// IsLive returns true while the worker can still make progress on the task
func IsLive(s State) bool {
	return s != StateStopping && s != StateFinished
}
