// Package hotkey provides a global hotkey listener using gohook.
// It supports "commands" mode (one combo starts, another stops),
// "hold" mode (press to start, release to stop) and "toggle" mode
// (each press flips recording on or off).
package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType indicates whether recording should start, stop or flip.
type EventType int

const (
	// EventStart signals that recording should start.
	EventStart EventType = iota
	// EventStop signals that recording should stop.
	EventStop
	// EventToggle signals that recording should start when idle and stop
	// when recording. The receiver owns the state.
	EventToggle
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Bindings are the key combos a Listener watches. Keys should be
// lowercase gohook key names (e.g., ["ctrl", "shift", "r"]).
type Bindings struct {
	Mode  string   // "commands", "hold" or "toggle"
	Start []string // commands mode
	Stop  []string // commands mode
	Keys  []string // hold and toggle modes
}

// Listener manages global hotkeys and emits recording events.
type Listener struct {
	b    Bindings
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given bindings.
func NewListener(b Bindings) *Listener {
	return &Listener{
		b:    b,
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	switch l.b.Mode {
	case "toggle":
		l.registerToggle()
	case "hold":
		l.registerHold()
	default: // "commands"
		l.registerCommands()
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// registerCommands binds the start combo to EventStart and the stop combo
// to EventStop. Repeated presses are left to the receiver to ignore.
func (l *Listener) registerCommands() {
	hook.Register(hook.KeyDown, l.b.Start, func(hook.Event) { l.emit(EventStart) })
	hook.Register(hook.KeyDown, l.b.Stop, func(hook.Event) { l.emit(EventStop) })
}

// registerHold implements hold-to-talk mode:
// KeyDown -> EventStart, KeyUp -> EventStop.
func (l *Listener) registerHold() {
	hook.Register(hook.KeyDown, l.b.Keys, func(hook.Event) { l.emit(EventStart) })
	hook.Register(hook.KeyUp, l.b.Keys, func(hook.Event) { l.emit(EventStop) })
}

// registerToggle implements toggle mode: every press -> EventToggle.
func (l *Listener) registerToggle() {
	hook.Register(hook.KeyDown, l.b.Keys, func(hook.Event) { l.emit(EventToggle) })
}

// emit sends ev without blocking the hook thread.
func (l *Listener) emit(ev EventType) {
	select {
	case l.ch <- Event{Type: ev}:
	default: // don't block if channel is full
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// Hint renders a key combo for display, e.g. ["ctrl", "shift", "r"]
// becomes "Ctrl+Shift+R" and ["f9"] becomes "F9".
func Hint(keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch {
		case k == "":
			continue
		case len(k) <= 3 && (k[0] == 'f' || len(k) == 1):
			parts = append(parts, strings.ToUpper(k))
		default:
			parts = append(parts, strings.ToUpper(k[:1])+k[1:])
		}
	}
	return strings.Join(parts, "+")
}
