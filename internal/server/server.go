// Package server provides the HTTP server for the airdraw web viewer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/airdraw/internal/server/api"
	"github.com/ayusman/airdraw/internal/session"
	"github.com/ayusman/airdraw/internal/store"
)

// Config holds the server configuration. Routes whose dependency is nil are
// not mounted.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Slot       *session.Slot
	Controller api.Controller
	Logger     *log.Logger
}

// Server represents the HTTP server for the airdraw application.
type Server struct {
	config Config
	router chi.Router
	logger *log.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/state", s.handleState)

	if s.config.Slot != nil {
		r.Method(http.MethodGet, "/api/stream", NewStreamHandler(s.config.Slot))
		r.Method(http.MethodGet, "/api/events", NewEventsHandler(s.config.Slot, s.logger))
	}
	if s.config.Controller != nil {
		api.NewCanvasHandler(s.config.Controller).Register(r)
	}
	if s.config.Store != nil {
		api.NewDrawingHandler(s.config.Store).Register(r)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// logRequests logs API calls at debug level. Long-lived streams log when
// they end.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "took", time.Since(start))
	})
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type stateResponse struct {
	Running bool                `json:"running"`
	Enabled bool                `json:"enabled"`
	Frames  uint64              `json:"frames"`
	Seq     uint64              `json:"seq"`
	State   *session.FrameState `json:"state,omitempty"`
}

// handleState handles GET /api/state: pipeline flags plus the latest frame
// summary.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var resp stateResponse
	if c := s.config.Controller; c != nil {
		resp.Running = c.Running()
		resp.Enabled = c.Enabled()
		resp.Frames = c.Frames()
	}
	if s.config.Slot != nil {
		if f, ok := s.config.Slot.Latest(); ok {
			resp.Seq = f.Seq
			resp.State = &f.State
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		// Streams end with ctx instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
