package api

import (
	"context"
	"net/http"

	"github.com/barbamx/tello-drone-pilot/internal/command"
	"github.com/barbamx/tello-drone-pilot/internal/session"
	"github.com/barbamx/tello-drone-pilot/internal/telemetry"
)

// SessionPort is what the API needs from the flight session.
type SessionPort interface {
	session.Intents
	Log() []command.LogEntry
	Telemetry() telemetry.Snapshot
}

// TelemetryPort streams events to one HTTP client.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

var _ SessionPort = (*session.Controller)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
