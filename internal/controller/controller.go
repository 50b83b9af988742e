// Package controller implements the recording controller: a two-state
// toggle (idle, recording) that owns at most one recognizer process and
// forwards its output to the focused text surface.
//
// All state lives on a single event loop goroutine started by Run.
// Commands, recognizer output, recognizer exits and status queries are
// events on that loop and are handled one at a time, to completion.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chaz8081/voice-commander/internal/notify"
	"github.com/chaz8081/voice-commander/internal/recognizer"
	"github.com/chaz8081/voice-commander/internal/surface"
)

// ErrClosed is returned when a request reaches a controller whose loop has exited.
var ErrClosed = errors.New("controller: closed")

// Options configure a Controller.
type Options struct {
	Interpreter string
	ScriptPath  string
	// Sentinel output lines are never inserted.
	Sentinel string
	// FlushAfterStop inserts output that arrives after its session was
	// stopped. When false, only the active session's output is inserted.
	FlushAfterStop bool
	// StopHint names the stop key in the "started" notification, e.g. "F9".
	StopHint string
}

// Status is a snapshot of the controller state.
type Status struct {
	Recording   bool   `json:"recording"`
	PID         int    `json:"pid,omitempty"`
	Session     uint64 `json:"session,omitempty"`
	Sessions    uint64 `json:"sessions"`
	LastExitErr string `json:"last_exit_error,omitempty"`
}

type eventKind int

const (
	evStart eventKind = iota
	evStop
	evToggle
	evLine
	evExit
	evStatus
)

type event struct {
	kind    eventKind
	session uint64
	text    string
	err     error
	reply   chan Status
}

type session struct {
	id   uint64
	proc recognizer.Process
}

// Controller toggles recording in response to Start and Stop.
type Controller struct {
	opts     Options
	spawner  recognizer.Spawner
	focus    surface.Focus
	notifier notify.Notifier

	events chan event
	done   chan struct{}

	// Owned by the loop goroutine.
	recording   bool
	active      *session
	sessions    uint64
	lastExitErr string
}

// New creates a Controller. Call Run to start its event loop.
func New(opts Options, spawner recognizer.Spawner, focus surface.Focus, notifier notify.Notifier) *Controller {
	if opts.StopHint == "" {
		opts.StopHint = "F9"
	}
	return &Controller{
		opts:     opts,
		spawner:  spawner,
		focus:    focus,
		notifier: notifier,
		events:   make(chan event, 64),
		done:     make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled. On exit it terminates the
// active recognizer, if any, and rejects further requests with ErrClosed.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Start begins a recording session. It is a no-op while recording.
func (c *Controller) Start(ctx context.Context) error {
	_, err := c.request(ctx, evStart)
	return err
}

// Stop ends the recording session. It is a no-op while idle.
func (c *Controller) Stop(ctx context.Context) error {
	_, err := c.request(ctx, evStop)
	return err
}

// Toggle starts a session while idle and stops it while recording. The
// choice is made on the loop, so a recognizer that exited on its own is
// already reflected.
func (c *Controller) Toggle(ctx context.Context) error {
	_, err := c.request(ctx, evToggle)
	return err
}

// Status returns the state as seen by the loop after every event queued
// before the call has been handled.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	return c.request(ctx, evStatus)
}

// request posts an event and waits for the loop to handle it.
func (c *Controller) request(ctx context.Context, kind eventKind) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case c.events <- event{kind: kind, reply: reply}:
	case <-c.done:
		return Status{}, ErrClosed
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}

	select {
	case st := <-reply:
		return st, nil
	case <-c.done:
		return Status{}, ErrClosed
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// post delivers a recognizer event to the loop. Events arriving after the
// loop has exited are dropped.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) handle(ev event) {
	switch ev.kind {
	case evStart:
		c.start()
	case evStop:
		c.stop()
	case evToggle:
		if c.recording {
			c.stop()
		} else {
			c.start()
		}
	case evLine:
		c.output(ev.session, ev.text)
	case evExit:
		c.exited(ev.session, ev.err)
	}
	if ev.reply != nil {
		ev.reply <- c.status()
	}
}

func (c *Controller) start() {
	if c.recording {
		slog.Debug("[recorder] start ignored, already recording")
		return
	}

	c.recording = true
	c.notifyUser(fmt.Sprintf("Voice recording started (%s to stop)", c.opts.StopHint))

	c.sessions++
	id := c.sessions
	proc, err := c.spawner.Spawn(c.opts.Interpreter, []string{c.opts.ScriptPath}, recognizer.Handlers{
		OnLine: func(line string) {
			c.post(event{kind: evLine, session: id, text: line})
		},
		OnExit: func(err error) {
			c.post(event{kind: evExit, session: id, err: err})
		},
	})
	if err != nil {
		// Same outcome as a recognizer that exits immediately.
		slog.Error("[recorder] failed to start recognizer", "interpreter", c.opts.Interpreter, "script", c.opts.ScriptPath, "error", err)
		c.recording = false
		c.lastExitErr = err.Error()
		return
	}

	c.active = &session{id: id, proc: proc}
	slog.Info("[recorder] recognizer started", "session", id, "pid", proc.PID(), "script", c.opts.ScriptPath)
}

func (c *Controller) stop() {
	if !c.recording {
		slog.Debug("[recorder] stop ignored, not recording")
		return
	}

	c.recording = false
	c.notifyUser("Voice recording stopped")

	if c.active != nil {
		if err := c.active.proc.Terminate(); err != nil {
			slog.Warn("[recorder] terminate failed", "session", c.active.id, "error", err)
		}
		slog.Info("[recorder] recognizer stopped", "session", c.active.id)
		c.active = nil
	}
}

func (c *Controller) output(id uint64, line string) {
	text := strings.TrimSpace(line)
	if text == "" || text == c.opts.Sentinel {
		return
	}
	if !c.opts.FlushAfterStop && (c.active == nil || c.active.id != id) {
		slog.Debug("[recorder] dropping output from inactive session", "session", id)
		return
	}
	c.insert(text)
}

func (c *Controller) insert(text string) {
	err := surface.InsertAtCursor(c.focus, text)
	switch {
	case errors.Is(err, surface.ErrNoFocus):
		slog.Debug("[recorder] no focused surface, dropping text", "chars", len(text))
	case err != nil:
		slog.Error("[recorder] text insertion failed", "error", err)
	default:
		slog.Debug("[recorder] text inserted", "chars", len(text))
	}
}

func (c *Controller) exited(id uint64, err error) {
	if err != nil {
		c.lastExitErr = err.Error()
		slog.Warn("[recorder] recognizer exited", "session", id, "error", err)
	} else {
		slog.Info("[recorder] recognizer exited", "session", id)
	}

	// A stopped session may exit after a newer one started.
	if c.active == nil || c.active.id != id {
		return
	}
	c.active = nil
	c.recording = false
}

func (c *Controller) shutdown() {
	if c.active == nil {
		return
	}
	if err := c.active.proc.Terminate(); err != nil {
		slog.Warn("[recorder] terminate on shutdown failed", "session", c.active.id, "error", err)
	}
	c.active = nil
	c.recording = false
}

func (c *Controller) status() Status {
	st := Status{
		Recording:   c.recording,
		Sessions:    c.sessions,
		LastExitErr: c.lastExitErr,
	}
	if c.active != nil {
		st.Session = c.active.id
		st.PID = c.active.proc.PID()
	}
	return st
}

func (c *Controller) notifyUser(message string) {
	if err := c.notifier.Notify(message); err != nil {
		slog.Warn("[recorder] notification failed", "error", err)
	}
}
