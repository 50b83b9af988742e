package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/voice-commander/internal/command"
	"github.com/chaz8081/voice-commander/internal/controller"
	"github.com/chaz8081/voice-commander/internal/surface"
)

type mockStatus struct {
	st  controller.Status
	err error
}

func (m *mockStatus) Status(context.Context) (controller.Status, error) {
	return m.st, m.err
}

func newTestServer(t *testing.T, status *mockStatus, editor *Editor) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	starts := &atomic.Int32{}
	reg := command.NewRegistry()
	_ = reg.Register(command.StartRecording, func(context.Context) error {
		starts.Add(1)
		status.st.Recording = true
		return nil
	})
	_ = reg.Register(command.StopRecording, func(context.Context) error {
		return errors.New("recognizer wedged")
	})

	srv := httptest.NewServer(NewServer("", reg, status, editor).Handler())
	t.Cleanup(srv.Close)
	return srv, starts
}

func TestExecuteCommand(t *testing.T) {
	status := &mockStatus{}
	srv, starts := newTestServer(t, status, nil)

	resp, err := http.Post(srv.URL+"/commands/"+command.StartRecording, "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}
	if n := starts.Load(); n != 1 {
		t.Errorf("start calls = %d, want 1", n)
	}

	var st controller.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !st.Recording {
		t.Error("response Recording = false, want true")
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	srv, _ := newTestServer(t, &mockStatus{}, nil)

	resp, err := http.Post(srv.URL+"/commands/voice-commander.pause", "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", resp.StatusCode)
	}
}

func TestExecuteCommandFailure(t *testing.T) {
	srv, _ := newTestServer(t, &mockStatus{}, nil)

	resp, err := http.Post(srv.URL+"/commands/"+command.StopRecording, "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !strings.Contains(body["error"], "recognizer wedged") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestListCommands(t *testing.T) {
	srv, _ := newTestServer(t, &mockStatus{}, nil)

	resp, err := http.Get(srv.URL + "/commands")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Commands []string `json:"commands"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(body.Commands) != 2 || body.Commands[0] != command.StartRecording {
		t.Errorf("commands = %v", body.Commands)
	}
}

func TestStatus(t *testing.T) {
	status := &mockStatus{st: controller.Status{Recording: true, PID: 4242, Session: 3, Sessions: 3}}
	srv, _ := newTestServer(t, status, nil)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var st controller.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if st != status.st {
		t.Errorf("status = %+v, want %+v", st, status.st)
	}
}

func TestStatusUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, &mockStatus{err: controller.ErrClosed}, nil)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", resp.StatusCode)
	}
}

func TestEditorRouteDisabled(t *testing.T) {
	srv, _ := newTestServer(t, &mockStatus{}, nil)

	resp, err := http.Get(srv.URL + "/editor")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", resp.StatusCode)
	}
}

func dialEditor(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/editor"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEditorNoClientsNotFocused(t *testing.T) {
	e := NewEditor()
	if err := surface.InsertAtCursor(e, "nobody"); !errors.Is(err, surface.ErrNoFocus) {
		t.Errorf("InsertAtCursor() error = %v, want ErrNoFocus", err)
	}
}

func TestEditorInsert(t *testing.T) {
	editor := NewEditor()
	srv, _ := newTestServer(t, &mockStatus{}, editor)

	conn := dialEditor(t, srv)
	if err := conn.WriteJSON(Message{Type: "hello", Name: "test-editor"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	waitFor(t, "editor focus", func() bool {
		_, ok := editor.Focused()
		return ok
	})

	if err := surface.InsertAtCursor(editor, "hello from the recognizer"); err != nil {
		t.Fatalf("InsertAtCursor() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != "insert" || msg.Text != "hello from the recognizer" {
		t.Errorf("message = %+v", msg)
	}
}

func TestEditorFocusFollowsLastClient(t *testing.T) {
	editor := NewEditor()
	srv, _ := newTestServer(t, &mockStatus{}, editor)

	first := dialEditor(t, srv)
	waitFor(t, "first client", func() bool { return editor.Clients() == 1 })
	second := dialEditor(t, srv)
	waitFor(t, "second client", func() bool { return editor.Clients() == 2 })

	// First client takes focus back.
	if err := first.WriteJSON(Message{Type: "focus"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	// Whichever frame lands first, the first client ends up focused.
	if err := second.WriteJSON(Message{Type: "blur"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	firstAddr := first.LocalAddr().String()
	waitFor(t, "first client focus", func() bool {
		editor.mu.Lock()
		defer editor.mu.Unlock()
		return editor.focused != nil && editor.focused.name == firstAddr
	})

	if err := surface.InsertAtCursor(editor, "to the first"); err != nil {
		t.Fatalf("InsertAtCursor() error = %v", err)
	}
	first.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := first.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Text != "to the first" {
		t.Errorf("first client got %+v", msg)
	}
}

func TestEditorBlurAndDisconnect(t *testing.T) {
	editor := NewEditor()
	srv, _ := newTestServer(t, &mockStatus{}, editor)

	conn := dialEditor(t, srv)
	waitFor(t, "client", func() bool { return editor.Clients() == 1 })

	if err := conn.WriteJSON(Message{Type: "blur"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	waitFor(t, "blur", func() bool {
		_, ok := editor.Focused()
		return !ok
	})

	if err := conn.WriteJSON(Message{Type: "focus"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	waitFor(t, "refocus", func() bool {
		_, ok := editor.Focused()
		return ok
	})

	conn.Close()
	waitFor(t, "disconnect", func() bool { return editor.Clients() == 0 })
	if _, ok := editor.Focused(); ok {
		t.Error("Focused() = true after the only client disconnected")
	}
}

func TestCrossOriginCommandRejected(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   int
		runs   int32
	}{
		{"foreign site", "https://evil.example", http.StatusForbidden, 0},
		{"sandboxed page", "null", http.StatusForbidden, 0},
		{"localhost page", "http://localhost:3000", http.StatusOK, 1},
		{"loopback ip", "http://127.0.0.1:7717", http.StatusOK, 1},
		{"ipv6 loopback", "http://[::1]:8080", http.StatusOK, 1},
		{"no origin", "", http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, starts := newTestServer(t, &mockStatus{}, nil)

			req, err := http.NewRequest(http.MethodPost, srv.URL+"/commands/"+command.StartRecording, strings.NewReader("x"))
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			req.Header.Set("Content-Type", "text/plain")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.want)
			}
			if n := starts.Load(); n != tt.runs {
				t.Errorf("start calls = %d, want %d", n, tt.runs)
			}
		})
	}
}

func TestIsLoopbackOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost", true},
		{"http://127.0.0.2:9000", true},
		{"http://localhost.evil.example", false},
		{"http://127.0.0.1.evil.example", false},
		{"https://192.168.1.10", false},
		{"null", false},
		{"::::", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := isLoopbackOrigin(tt.origin); got != tt.want {
				t.Errorf("isLoopbackOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
