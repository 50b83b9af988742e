// Package control serves the local HTTP endpoint used to invoke commands,
// inspect recorder status and connect editor clients.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chaz8081/voice-commander/internal/command"
	"github.com/chaz8081/voice-commander/internal/controller"
)

// Commands executes and lists named commands.
type Commands interface {
	Execute(ctx context.Context, name string) error
	Names() []string
}

// StatusSource reports the recorder status.
type StatusSource interface {
	Status(ctx context.Context) (controller.Status, error)
}

// Server is the control endpoint.
type Server struct {
	addr   string
	cmds   Commands
	status StatusSource
	editor *Editor
}

// NewServer creates a Server. editor may be nil, in which case /editor is
// not routed.
func NewServer(addr string, cmds Commands, status StatusSource, editor *Editor) *Server {
	return &Server{addr: addr, cmds: cmds, status: status, editor: editor}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loopbackOrigin)

	r.Get("/commands", s.listCommands)
	r.Post("/commands/{name}", s.executeCommand)
	r.Get("/status", s.getStatus)
	if s.editor != nil {
		r.Get("/editor", s.editor.ServeHTTP)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[control] listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("control: serve %s: %w", s.addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("control: shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"commands": s.cmds.Names()})
}

func (s *Server) executeCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.cmds.Execute(r.Context(), name)
	switch {
	case errors.Is(err, command.ErrUnknownCommand):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case err != nil:
		slog.Error("[control] command failed", "command", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	slog.Debug("[control] command executed", "command", name)
	s.getStatus(w, r)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// loopbackOrigin rejects browser requests sent from pages that are not
// served from this machine. Requests without an Origin header (curl,
// editor plugins) pass through.
func loopbackOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !isLoopbackOrigin(origin) {
			slog.Warn("[control] rejected cross-origin request", "origin", origin, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "cross-origin requests are not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("[control] write response failed", "error", err)
	}
}
