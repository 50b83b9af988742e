// Package command is a small registry of named, argument-less commands.
// Hotkeys and the control endpoint dispatch through it by name.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Names of the commands registered by voice-commander.
const (
	StartRecording  = "voice-commander.startRecording"
	StopRecording   = "voice-commander.stopRecording"
	ToggleRecording = "voice-commander.toggleRecording"
)

// ErrUnknownCommand is returned by Execute for names that were never registered.
var ErrUnknownCommand = errors.New("command: unknown command")

// Func is the body of a command.
type Func func(ctx context.Context) error

// Registry maps command names to their implementations. It is safe for
// concurrent use.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Func
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Func)}
}

// Register adds a command. Names must be non-empty and unique.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("command: empty name")
	}
	if fn == nil {
		return fmt.Errorf("command: %s: nil func", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cmds[name]; ok {
		return fmt.Errorf("command: %s already registered", name)
	}
	r.cmds[name] = fn
	return nil
}

// Execute runs the named command.
func (r *Registry) Execute(ctx context.Context, name string) error {
	r.mu.RLock()
	fn, ok := r.cmds[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn(ctx)
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
