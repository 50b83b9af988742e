// Package surface resolves the text surface that currently has focus and
// inserts recognized text at its cursor.
package surface

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNoFocus is returned by InsertAtCursor when no surface has focus.
var ErrNoFocus = errors.New("surface: no focused surface")

// Surface is a text surface with a cursor.
type Surface interface {
	// Insert places text at the surface's cursor as a single edit.
	Insert(text string) error
}

// Focus resolves the currently focused surface, if any.
type Focus interface {
	Focused() (Surface, bool)
}

// InsertAtCursor inserts text into the focused surface. The cursor
// position is whatever it is when the edit is applied.
func InsertAtCursor(f Focus, text string) error {
	s, ok := f.Focused()
	if !ok {
		return ErrNoFocus
	}
	if err := s.Insert(text); err != nil {
		return fmt.Errorf("surface: insert: %w", err)
	}
	return nil
}

// Writer is a surface that appends each insertion as a line to an
// io.Writer. It always has focus.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

var (
	_ Surface = (*Writer)(nil)
	_ Focus   = (*Writer)(nil)
)

// NewWriter creates a Writer surface backed by w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Focused() (Surface, bool) {
	return w, true
}

func (w *Writer) Insert(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := io.WriteString(w.w, text+"\n")
	return err
}
