//
//
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/auth"
	"github.com/barbamx/tello-drone-pilot/internal/config"
)

// Server is the HTTP intent front-end.
type Server struct {
	session        SessionPort
	telemetryHub   TelemetryPort
	authMiddleware *auth.Middleware
	cfg            config.APIConfig
	startTime      time.Time

	mu         sync.Mutex
	httpServer *http.Server
	stopped    bool
}

// NewServer creates a server. A nil authMiddleware leaves every route open.
func NewServer(sess SessionPort, hub TelemetryPort, authMiddleware *auth.Middleware, cfg config.APIConfig) *Server {
	return &Server{
		session:        sess,
		telemetryHub:   hub,
		authMiddleware: authMiddleware,
		cfg:            cfg,
		startTime:      time.Now(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutMs) * time.Millisecond,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ln.Close()
	}
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server. Open SSE streams are closed when ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
