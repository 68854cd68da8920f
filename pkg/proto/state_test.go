package proto

import (
	"testing"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		// Valid transitions
		{"Initializing to Initialized", StateInitializing, StateInitialized, false},
		{"Initialized to WaitExecData", StateInitialized, StateWaitExecData, false},
		{"WaitExecData to Booting", StateWaitExecData, StateBooting, false},
		{"Booting to Started", StateBooting, StateStarted, false},
		{"Started to Executing", StateStarted, StateExecuting, false},
		{"Executing to Stopping", StateExecuting, StateStopping, false},
		{"Stopping to Finished", StateStopping, StateFinished, false},

		// Failure short-circuit reaches Stopping from any live state
		{"Initializing to Stopping", StateInitializing, StateStopping, false},
		{"Initialized to Stopping", StateInitialized, StateStopping, false},
		{"WaitExecData to Stopping", StateWaitExecData, StateStopping, false},
		{"Booting to Stopping", StateBooting, StateStopping, false},
		{"Started to Stopping", StateStarted, StateStopping, false},

		// Invalid transitions
		{"Initializing to Executing", StateInitializing, StateExecuting, true},
		{"Initialized to Booting", StateInitialized, StateBooting, true},
		{"Executing back to Started", StateExecuting, StateStarted, true},
		{"Stopping back to Executing", StateStopping, StateExecuting, true},
		{"WaitExecData to Finished", StateWaitExecData, StateFinished, true},
		{"Finished to anything", StateFinished, StateStopping, true},
		{"Unknown source state", State(42), StateStopping, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%v, %v) error = %v, wantErr %v",
					tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for s := StateInitializing; s < StateFinished; s++ {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%v) = true, want false", s)
		}
	}
	if !IsTerminal(StateFinished) {
		t.Errorf("IsTerminal(%v) = false, want true", StateFinished)
	}
}

func TestIsLive(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateInitializing, true},
		{StateExecuting, true},
		{StateStopping, false},
		{StateFinished, false},
	}
	for _, tt := range tests {
		if got := IsLive(tt.state); got != tt.want {
			t.Errorf("IsLive(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if got := StateExecuting.String(); got != "executing" {
		t.Errorf("StateExecuting.String() = %q, want %q", got, "executing")
	}
	if got := State(99).String(); got != "state(99)" {
		t.Errorf("State(99).String() = %q, want %q", got, "state(99)")
	}
}
