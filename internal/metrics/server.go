package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leefowlercu/dron/internal/monitor"
)

// Server exposes /metrics, /entries and /healthz.
// It is safe for concurrent use.
type Server struct {
	mu       sync.RWMutex
	addr     string
	provider *JobsProvider
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(addr string, provider *JobsProvider) *Server {
	s := &Server{
		addr:     addr,
		provider: provider,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/entries", s.handleEntries)
	s.router.Handle("/metrics", Handler())
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// EntriesResponse is the /entries payload.
type EntriesResponse struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Entries   []monitor.Entry `json:"entries"`
	Error     string          `json:"error,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, at, err := s.provider.Entries()

	resp := EntriesResponse{UpdatedAt: at, Entries: entries}
	if resp.Entries == nil {
		resp.Entries = []monitor.Entry{}
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
	server := s.server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error; %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server; %w", err)
	}
	return nil
}
