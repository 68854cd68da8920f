package task

import (
	"context"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	noop := func(ctx *Context, args []any) (any, error) { return nil, nil }

	if err := Register("registry-test-noop", noop); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, ok := Lookup("registry-test-noop"); !ok {
		t.Error("Lookup failed for registered task")
	}
	if _, ok := Lookup("registry-test-missing"); ok {
		t.Error("Lookup succeeded for unregistered task")
	}
}

func TestRegisterRejects(t *testing.T) {
	noop := func(ctx *Context, args []any) (any, error) { return nil, nil }

	tests := []struct {
		name     string
		taskName string
		fn       Func
	}{
		{"empty name", "", noop},
		{"nil function", "registry-test-nilfn", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Register(tt.taskName, tt.fn); err == nil {
				t.Error("Register succeeded, want error")
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	noop := func(ctx *Context, args []any) (any, error) { return nil, nil }

	if err := Register("registry-test-dup", noop); err != nil {
		t.Fatalf("first Register error: %v", err)
	}
	if err := Register("registry-test-dup", noop); err == nil {
		t.Error("duplicate Register succeeded, want error")
	}
}

func TestNotifyInterruptCoalesces(t *testing.T) {
	ctx := NewContext(context.Background())

	if !ctx.NotifyInterrupt() {
		t.Fatal("first NotifyInterrupt was not queued")
	}
	// One delivery is already pending, the second coalesces.
	if ctx.NotifyInterrupt() {
		t.Error("second NotifyInterrupt queued, want coalesced")
	}

	<-ctx.Interrupt()

	select {
	case <-ctx.Interrupt():
		t.Error("interrupt channel fired twice for coalesced deliveries")
	default:
	}

	// Re-armed after consumption.
	if !ctx.NotifyInterrupt() {
		t.Error("NotifyInterrupt after consumption was not queued")
	}
}
