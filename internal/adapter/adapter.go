package adapter

import (
	"context"
	"strings"
	"time"
)

// Response is a single vehicle reply, attributed to the command text it answers.
type Response struct {
	Command    string
	Payload    string
	ReceivedAt time.Time
}

// Transport defines the southbound contract to the vehicle.
type Transport interface {
	// SendRaw transmits one command. It never waits for the vehicle's reply.
	SendRaw(ctx context.Context, command string) error

	// Responses delivers replies until Close; the channel is closed afterwards.
	Responses() <-chan Response

	// Close releases the link. Further SendRaw calls fail with ErrTransportFailure.
	Close() error
}

// IsQuery reports whether a command is a read query such as "battery?".
func IsQuery(command string) bool {
	return strings.HasSuffix(strings.TrimSpace(command), "?")
}
