// Package inject provides text injection into the active application
// using robotgo for keystroke simulation or clipboard paste.
package inject

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"

	"github.com/chaz8081/voice-commander/internal/surface"
)

// restoreDelay is how long the pasted text stays on the clipboard. The
// target application reads the clipboard asynchronously after the chord.
const restoreDelay = 250 * time.Millisecond

// Injector handles typing or pasting text into the active application.
type Injector struct {
	method string // "type" or "paste"

	readClipboard  func() (string, error)
	writeClipboard func(string) error
	keyTap         func(key, mod string) error
	sleep          func(time.Duration)
}

// Compile-time interface satisfaction check.
var _ surface.Injector = (*Injector)(nil)

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{
		method:         method,
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
		keyTap:         func(key, mod string) error { return robotgo.KeyTap(key, mod) },
		sleep:          time.Sleep,
	}
}

// Inject sends text to the active application using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case "paste":
		return inj.paste(text)
	default: // "type"
		return inj.typeText(text)
	}
}

// typeText simulates individual keystrokes. Preserves clipboard contents
// but is slower for long text.
func (inj *Injector) typeText(text string) error {
	robotgo.Type(text)
	return nil
}

// paste copies text to the clipboard and taps the platform paste chord.
// The previous clipboard contents are restored after restoreDelay, unless
// they could not be read.
func (inj *Injector) paste(text string) error {
	prev, readErr := inj.readClipboard()
	if readErr != nil {
		slog.Debug("[inject] clipboard unreadable, will not restore", "error", readErr)
	}

	if err := inj.writeClipboard(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	mod := pasteModifier(runtime.GOOS)
	if err := inj.keyTap("v", mod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", mod, err)
	}

	if readErr != nil {
		return nil
	}
	inj.sleep(restoreDelay)
	if err := inj.writeClipboard(prev); err != nil {
		slog.Debug("[inject] clipboard restore failed", "error", err)
	}
	return nil
}

// pasteModifier returns the modifier used for paste on the given OS.
func pasteModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}
