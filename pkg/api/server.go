// Package api exposes the daemon's read-only HTTP surface: JSON state
// for the TUI and SDK, a plain-text label for status bars, and
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmax-ai/traylord/pkg/format"
	"github.com/rmax-ai/traylord/pkg/poller"
)

// DefaultAddr is the loopback address the daemon serves on.
const DefaultAddr = "127.0.0.1:8094"

// StateSource returns the latest poll state. Indirection keeps the
// server valid across provider hot-swaps.
type StateSource func() poller.State

// OptionsSource returns the current display options.
type OptionsSource func() format.Options

// StateResponse is the payload of GET /v1/state.
type StateResponse struct {
	State poller.State `json:"state"`
	Label string       `json:"label"`
	Stale bool         `json:"stale"`
}

// Server encapsulates the HTTP API server
type Server struct {
	state  StateSource
	opts   OptionsSource
	server *http.Server
}

// NewServer creates a new API server instance
func NewServer(addr string, state StateSource, opts OptionsSource) *Server {
	s := &Server{state: state, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/state", s.handleState)
	mux.HandleFunc("/v1/label", s.handleLabel)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("API server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.state()
	writeJSON(w, StateResponse{
		State: state,
		Label: format.Label(state.Snapshot, state.LastError != "", s.opts()),
		Stale: state.Stale(),
	})
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.state()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(format.Label(state.Snapshot, state.LastError != "", s.opts())))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
