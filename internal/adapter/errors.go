package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by every layer. Only ErrDeviceNotFound is ever fatal, and only
// to the input adapter that raised it.
var (
	ErrTransportFailure = errors.New("TRANSPORT_FAILURE")
	ErrTimeout          = errors.New("TIMEOUT")
	ErrParseFailure     = errors.New("PARSE_FAILURE")
	ErrDeviceNotFound   = errors.New("DEVICE_NOT_FOUND")
	ErrRejected         = errors.New("REJECTED")
)

// ReplyTokens lists lower-case reply prefixes the Tello SDK uses to refuse a command.
//
// Observed replies:
//   - "error", "error Not joystick", "error Motor stop", "error No valid imu"
//   - "out of range" for distances outside 20-500
//   - "unknown command: <text>" for anything the firmware does not parse
//
// Anything else is either the "ok" acknowledgment or a query value.
var ReplyTokens = []string{
	"error",
	"out of range",
	"unknown command",
	"no valid imu",
	"motor stop",
}

// TransportError wraps a failure with the command it belongs to.
type TransportError struct {
	Kind     error  // one of the Err* kinds above
	Command  string // command text, may be empty
	Original error  // underlying cause, may be nil
}

func (e *TransportError) Error() string {
	if e.Original == nil {
		return fmt.Sprintf("%v: %q", e.Kind, e.Command)
	}
	return fmt.Sprintf("%v: %q (%v)", e.Kind, e.Command, e.Original)
}

func (e *TransportError) Unwrap() error {
	return e.Kind
}

// Wrap builds a TransportError of the given kind.
func Wrap(kind error, command string, original error) error {
	return &TransportError{Kind: kind, Command: command, Original: original}
}

// IsAck reports whether payload is the plain "ok" acknowledgment.
func IsAck(payload string) bool {
	return strings.EqualFold(strings.TrimSpace(payload), "ok")
}

// IsRejection reports whether payload matches one of ReplyTokens.
func IsRejection(payload string) bool {
	p := strings.ToLower(strings.TrimSpace(payload))
	for _, token := range ReplyTokens {
		if strings.HasPrefix(p, token) {
			return true
		}
	}
	return false
}

// NormalizeReply maps a vehicle reply to nil or an ErrRejected TransportError.
func NormalizeReply(command, payload string) error {
	if !IsRejection(payload) {
		return nil
	}
	return Wrap(ErrRejected, command, errors.New(strings.TrimSpace(payload)))
}
