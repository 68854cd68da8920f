package task

import (
	"fmt"
	"sort"
	"sync"
)

// The registry maps descriptor names to task functions. Both the
// supervisor-side binary and the worker it spawns must register the
// same tasks, which happens naturally when they share a binary.
var registry = struct {
	mu  sync.RWMutex
	fns map[string]Func
}{fns: make(map[string]Func)}

// Register makes a task available for execution under the given name.
func Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("task name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("task %q: nil function", name)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.fns[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}
	registry.fns[name] = fn
	return nil
}

// MustRegister is Register for init-time wiring; it panics on error.
func MustRegister(name string, fn Func) {
	if err := Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup resolves a registered task by name.
func Lookup(name string) (Func, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	fn, ok := registry.fns[name]
	return fn, ok
}

// Names returns all registered task names, sorted.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.fns))
	for name := range registry.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
