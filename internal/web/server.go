// Package web provides the HTTP presentation surface for the
// tank-monitor daemon: a read-only status page and JSON endpoint, plus
// the two update triggers. The triggers never touch core state
// directly; they are forwarded to the driver loop over a command
// channel so the loop stays the single writer.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/tank-monitor/internal/status"
)

// Action identifies an update trigger.
type Action int

const (
	ActionCheck Action = iota
	ActionInstall
)

// UpdateRequest asks the driver loop to run an update action. The loop
// sends the resulting status message on Reply (buffered, capacity 1).
type UpdateRequest struct {
	Action Action
	Reply  chan string
}

const (
	// enqueueTimeout bounds how long a handler waits for the loop to
	// accept a request; a stalled loop (e.g. a hung transfer) must not
	// pile up blocked handlers forever.
	enqueueTimeout = 10 * time.Second

	// replyTimeout bounds the wait for the action to finish. Installs
	// download a whole image, so this is generous.
	replyTimeout = 2 * time.Minute
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- UpdateRequest
}

// New creates a Server reading state from tracker and forwarding update
// triggers to commands. commands may be nil, which disables the
// triggers (they answer 503).
func New(addr string, tracker *status.Tracker, commands chan<- UpdateRequest) *Server {
	s := &Server{tracker: tracker, commands: commands}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/update/check", s.handleAction(ActionCheck))
	mux.HandleFunc("/update/install", s.handleAction(ActionInstall))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleAction(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if s.commands == nil {
			http.Error(w, "updates disabled", http.StatusServiceUnavailable)
			return
		}

		req := UpdateRequest{Action: action, Reply: make(chan string, 1)}
		select {
		case s.commands <- req:
		case <-time.After(enqueueTimeout):
			http.Error(w, "monitor busy", http.StatusServiceUnavailable)
			return
		}

		select {
		case msg := <-req.Reply:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintln(w, msg)
		case <-time.After(replyTimeout):
			http.Error(w, "action timed out", http.StatusGatewayTimeout)
		}
	}
}
