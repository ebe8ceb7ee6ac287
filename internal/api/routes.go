//
//
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/audit"
	"github.com/barbamx/tello-drone-pilot/internal/auth"
	"github.com/barbamx/tello-drone-pilot/internal/command"
	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

const apiV1 = "/api/v1"

// RegisterRoutes registers every endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	mux.HandleFunc(apiV1+"/status", s.guard(auth.ScopeRead, s.handleStatus))
	mux.HandleFunc(apiV1+"/log", s.guard(auth.ScopeRead, s.handleLog))
	mux.HandleFunc(apiV1+"/telemetry", s.guard(auth.ScopeTelemetry, s.handleTelemetry))
	mux.HandleFunc(apiV1+"/telemetry/stream", s.guard(auth.ScopeTelemetry, s.handleTelemetryStream))

	mux.HandleFunc(apiV1+"/actions/{action}", s.guard(auth.ScopeControl, s.handleAction))
	mux.HandleFunc(apiV1+"/move/{direction}", s.guard(auth.ScopeControl, s.handleMove))
	mux.HandleFunc(apiV1+"/holds/{direction}", s.guard(auth.ScopeControl, s.handleHold))
	mux.HandleFunc(apiV1+"/quit", s.guard(auth.ScopeControl, s.handleQuit))
}

// guard wraps h with auth and a scope check when auth is configured.
func (s *Server) guard(scope string, h http.HandlerFunc) http.HandlerFunc {
	if s.authMiddleware == nil {
		return h
	}
	return s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(scope)(h))
}

// intentContext tags ctx with the caller for the audit log.
func intentContext(r *http.Request) context.Context {
	ctx := audit.WithSource(r.Context(), "http")
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		ctx = audit.WithUser(ctx, claims.Subject)
	}
	return ctx
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("Only %s allowed", strings.Join(allowed, ", ")), nil)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	status := s.session.Status()
	health := map[string]interface{}{
		"status":    "ok",
		"uptimeSec": time.Since(s.startTime).Seconds(),
		"state":     status.State.String(),
	}
	if status.ShuttingDown {
		health["status"] = "shutting-down"
	}
	WriteSuccess(w, health)
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	WriteSuccess(w, s.session.Status())
}

type logEntryView struct {
	Seq         uint64     `json:"seq"`
	Command     string     `json:"command"`
	Response    string     `json:"response,omitempty"`
	IssuedAt    time.Time  `json:"issuedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	LatencyMs   *int64     `json:"latencyMs,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func newLogEntryView(e command.LogEntry) logEntryView {
	v := logEntryView{
		Seq:      e.Seq,
		Command:  e.Command,
		Response: e.Response,
		IssuedAt: e.IssuedAt,
	}
	if e.Responded() {
		at := e.RespondedAt
		ms := e.Latency().Milliseconds()
		v.RespondedAt = &at
		v.LatencyMs = &ms
	}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

// handleLog handles GET /log?since=N&format=text
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			WriteAPIError(w, fmt.Errorf("since %q: %w", raw, ErrBadRequest))
			return
		}
		since = v
	}

	entries := s.session.Log()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, e := range entries {
			if e.Seq > since {
				fmt.Fprintln(w, e.String())
			}
		}
		return
	}

	views := make([]logEntryView, 0, len(entries))
	for _, e := range entries {
		if e.Seq > since {
			views = append(views, newLogEntryView(e))
		}
	}
	WriteSuccess(w, map[string]interface{}{"entries": views})
}

// handleTelemetry handles GET /telemetry
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.session.Telemetry()
	WriteSuccess(w, map[string]interface{}{
		"snapshot": snap,
		"line":     snap.String(),
	})
}

// handleTelemetryStream handles GET /telemetry/stream (SSE)
func (s *Server) handleTelemetryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Event stream not available", nil)
		return
	}
	// headers are already sent once Subscribe fails, so the error is dropped
	_ = s.telemetryHub.Subscribe(r.Context(), w, r)
}

// handleAction handles POST /actions/{takeoff|land|emergency}
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	action, err := session.ParseAction(r.PathValue("action"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}
	if err := s.session.OnDiscreteAction(intentContext(r), action); err != nil {
		WriteAPIError(w, err)
		return
	}
	WriteSuccess(w, s.session.Status())
}

// handleMove handles POST /move/{direction}
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	d, err := movement.ParseDirection(r.PathValue("direction"))
	if err != nil {
		WriteAPIError(w, err)
		return
	}
	if err := s.session.OnDiscreteAction(intentContext(r), session.MoveOnce(d)); err != nil {
		WriteAPIError(w, err)
		return
	}
	WriteSuccess(w, map[string]string{"direction": d.String()})
}

// handleHold handles PUT (start) and DELETE (end) /holds/{direction}
func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	d, err := movement.ParseDirection(r.PathValue("direction"))
	if err != nil {
		WriteAPIError(w, err)
		return
	}

	switch r.Method {
	case http.MethodPut:
		err = s.session.OnHoldStart(intentContext(r), d)
	case http.MethodDelete:
		err = s.session.OnHoldEnd(intentContext(r), d)
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
		return
	}
	if err != nil {
		WriteAPIError(w, err)
		return
	}
	WriteSuccess(w, map[string]interface{}{"activeHolds": s.session.Status().ActiveHolds})
}

// handleQuit handles POST /quit. Shutdown runs in the background.
func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if s.session.Status().ShuttingDown {
		WriteAPIError(w, session.ErrShuttingDown)
		return
	}
	s.session.OnQuit(intentContext(r))
	WriteAccepted(w, map[string]string{"state": session.ShuttingDown.String()})
}
