package session

import (
	"context"
	"errors"

	"github.com/barbamx/tello-drone-pilot/internal/audit"
	"github.com/barbamx/tello-drone-pilot/internal/command"
	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/telemetry"
)

// ErrShuttingDown is returned for any action after shutdown began.
var ErrShuttingDown = errors.New("SHUTTING_DOWN")

// ErrNotReady is returned for flight actions before the handshake completed.
var ErrNotReady = errors.New("NOT_READY")

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("ALREADY_STARTED")

// Auditor records operator intents.
type Auditor interface {
	LogIntent(ctx context.Context, action string, params map[string]interface{}, err error)
}

// Publisher receives session, command and telemetry events.
type Publisher interface {
	PublishEvent(eventType string, data map[string]interface{})
}

// Intents is the surface front-ends drive.
type Intents interface {
	OnDiscreteAction(ctx context.Context, a Action) error
	OnHoldStart(ctx context.Context, d movement.Direction) error
	OnHoldEnd(ctx context.Context, d movement.Direction) error
	OnQuit(ctx context.Context)
	Status() Status
	Done() <-chan struct{}
}

var (
	_ Auditor    = (*audit.Logger)(nil)
	_ audit.Sink = (*audit.FileSink)(nil)

	_ Publisher         = (*telemetry.Hub)(nil)
	_ command.Publisher = (*telemetry.Hub)(nil)

	_ Intents = (*Controller)(nil)
)
