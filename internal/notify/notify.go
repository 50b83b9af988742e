// Package notify shows short user-facing status messages.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier delivers a one-line message to the user.
type Notifier interface {
	Notify(message string) error
}

// New returns the notifier for a config notify.method value.
func New(method string) (Notifier, error) {
	switch method {
	case "desktop":
		return Desktop{Title: "Voice Commander"}, nil
	case "log":
		return Log{}, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("notify: unknown method %q", method)
	}
}

// Desktop posts messages as desktop notifications.
type Desktop struct {
	Title string
}

func (d Desktop) Notify(message string) error {
	if err := beeep.Notify(d.Title, message, ""); err != nil {
		return fmt.Errorf("notify: desktop: %w", err)
	}
	return nil
}

// Log writes messages to the default slog logger.
type Log struct{}

func (Log) Notify(message string) error {
	slog.Info("[notify] " + message)
	return nil
}

// Nop discards messages.
type Nop struct{}

func (Nop) Notify(string) error { return nil }
