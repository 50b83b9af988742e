package surface

import (
	"bytes"
	"errors"
	"testing"
)

type mockInjector struct {
	injected []string
	err      error
}

func (m *mockInjector) Inject(text string) error {
	if m.err != nil {
		return m.err
	}
	m.injected = append(m.injected, text)
	return nil
}

func TestWriterInsert(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := InsertAtCursor(w, "hello world"); err != nil {
		t.Fatalf("InsertAtCursor() error = %v", err)
	}
	if err := InsertAtCursor(w, "second line"); err != nil {
		t.Fatalf("InsertAtCursor() error = %v", err)
	}

	if got, want := buf.String(), "hello world\nsecond line\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestDesktopNoFocusedWindow(t *testing.T) {
	inj := &mockInjector{}
	d := &Desktop{injector: inj, title: func() string { return "" }}

	err := InsertAtCursor(d, "dropped")
	if !errors.Is(err, ErrNoFocus) {
		t.Fatalf("InsertAtCursor() error = %v, want ErrNoFocus", err)
	}
	if len(inj.injected) != 0 {
		t.Errorf("injected = %v, want empty", inj.injected)
	}
}

func TestDesktopFocusedWindow(t *testing.T) {
	inj := &mockInjector{}
	d := &Desktop{injector: inj, title: func() string { return "main.go - editor" }}

	if err := InsertAtCursor(d, "func main"); err != nil {
		t.Fatalf("InsertAtCursor() error = %v", err)
	}
	if len(inj.injected) != 1 || inj.injected[0] != "func main" {
		t.Errorf("injected = %v, want [func main]", inj.injected)
	}
}

func TestInsertAtCursorWrapsError(t *testing.T) {
	boom := errors.New("boom")
	d := &Desktop{injector: &mockInjector{err: boom}, title: func() string { return "editor" }}

	err := InsertAtCursor(d, "text")
	if !errors.Is(err, boom) {
		t.Errorf("InsertAtCursor() error = %v, want wrapping %v", err, boom)
	}
}
