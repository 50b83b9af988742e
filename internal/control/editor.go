package control

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/voice-commander/internal/surface"
)

const sendQueue = 64

// Message is the JSON frame exchanged with editor clients.
//
// Clients send {"type":"hello","name":...}, {"type":"focus"} and
// {"type":"blur"}. The server sends {"type":"insert","text":...}.
type Message struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Editor is a hub of connected editor clients and a surface.Focus: the
// client that most recently connected or sent "focus" receives inserts.
type Editor struct {
	mu      sync.Mutex
	clients map[*editorClient]struct{}
	focused *editorClient
}

var _ surface.Focus = (*Editor)(nil)

// NewEditor creates an empty editor hub.
func NewEditor() *Editor {
	return &Editor{clients: make(map[*editorClient]struct{})}
}

type editorClient struct {
	editor *Editor
	conn   *websocket.Conn
	name   string
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

// Focused returns the focused editor client, if any.
func (e *Editor) Focused() (surface.Surface, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.focused == nil {
		return nil, false
	}
	return e.focused, true
}

// Clients returns the number of connected editor clients.
func (e *Editor) Clients() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clients)
}

// ServeHTTP upgrades the request and serves one editor client until it
// disconnects.
func (e *Editor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[control] editor upgrade failed", "error", err)
		return
	}

	c := &editorClient{
		editor: e,
		conn:   conn,
		name:   r.RemoteAddr,
		send:   make(chan []byte, sendQueue),
		closed: make(chan struct{}),
	}
	e.register(c)
	defer e.unregister(c)

	go c.writeLoop()
	c.readLoop()
}

func (e *Editor) register(c *editorClient) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clients[c] = struct{}{}
	e.focused = c
	slog.Info("[control] editor connected", "client", c.name, "clients", len(e.clients))
}

func (e *Editor) unregister(c *editorClient) {
	e.mu.Lock()
	delete(e.clients, c)
	if e.focused == c {
		e.focused = nil
	}
	n := len(e.clients)
	e.mu.Unlock()

	c.close()
	slog.Info("[control] editor disconnected", "client", c.name, "clients", n)
}

func (e *Editor) setFocus(c *editorClient, focused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.clients[c]; !ok {
		return
	}
	switch {
	case focused:
		e.focused = c
	case e.focused == c:
		e.focused = nil
	}
}

// Insert queues an insert frame for the client.
func (c *editorClient) Insert(text string) error {
	data, err := json.Marshal(Message{Type: "insert", Text: text})
	if err != nil {
		return fmt.Errorf("control: encode insert: %w", err)
	}
	select {
	case <-c.closed:
		return fmt.Errorf("control: editor %s disconnected", c.name)
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("control: editor %s send queue full", c.name)
	}
}

func (c *editorClient) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("[control] ignoring malformed editor frame", "client", c.name, "error", err)
			continue
		}
		switch msg.Type {
		case "hello":
			slog.Info("[control] editor hello", "client", c.name, "name", msg.Name)
		case "focus":
			c.editor.setFocus(c, true)
		case "blur":
			c.editor.setFocus(c, false)
		}
	}
}

func (c *editorClient) writeLoop() {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("[control] editor write failed", "error", err)
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *editorClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}
