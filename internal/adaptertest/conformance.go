// Package adaptertest provides a conformance suite every adapter.Transport must pass.
//
// The suite assumes the far end behaves like an idle Tello: control commands
// are acknowledged with "ok" and "battery?" answers with an integer.
package adaptertest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

// ReplyTimeout bounds every wait in the suite.
var ReplyTimeout = 2 * time.Second

// RunConformance runs the suite. newTransport is called once per case and must
// return a fresh, connected transport.
func RunConformance(t *testing.T, newTransport func(t *testing.T) adapter.Transport) {
	t.Helper()

	t.Run("AckIsAttributedToCommand", func(t *testing.T) {
		tr := newTransport(t)
		defer func() { _ = tr.Close() }()

		if err := tr.SendRaw(context.Background(), "command"); err != nil {
			t.Fatalf("SendRaw() failed: %v", err)
		}
		resp := awaitResponse(t, tr)
		if resp.Command != "command" {
			t.Errorf("Expected response for 'command', got %q", resp.Command)
		}
		if !adapter.IsAck(resp.Payload) {
			t.Errorf("Expected ok, got %q", resp.Payload)
		}
		if resp.ReceivedAt.IsZero() {
			t.Error("Expected ReceivedAt to be set")
		}
	})

	t.Run("QueryReturnsValue", func(t *testing.T) {
		tr := newTransport(t)
		defer func() { _ = tr.Close() }()

		if err := tr.SendRaw(context.Background(), "battery?"); err != nil {
			t.Fatalf("SendRaw() failed: %v", err)
		}
		resp := awaitResponse(t, tr)
		if resp.Command != "battery?" {
			t.Errorf("Expected response for 'battery?', got %q", resp.Command)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(resp.Payload)); err != nil {
			t.Errorf("Expected integer battery value, got %q", resp.Payload)
		}
	})

	t.Run("InterleavedCommandsKeepAttribution", func(t *testing.T) {
		tr := newTransport(t)
		defer func() { _ = tr.Close() }()

		ctx := context.Background()
		if err := tr.SendRaw(ctx, "forward 20"); err != nil {
			t.Fatalf("SendRaw() failed: %v", err)
		}
		if err := tr.SendRaw(ctx, "battery?"); err != nil {
			t.Fatalf("SendRaw() failed: %v", err)
		}

		got := map[string]string{}
		for i := 0; i < 2; i++ {
			resp := awaitResponse(t, tr)
			got[resp.Command] = resp.Payload
		}
		if !adapter.IsAck(got["forward 20"]) {
			t.Errorf("Expected ok for 'forward 20', got %q", got["forward 20"])
		}
		if _, err := strconv.Atoi(strings.TrimSpace(got["battery?"])); err != nil {
			t.Errorf("Expected integer for 'battery?', got %q", got["battery?"])
		}
	})

	t.Run("CancelledContextFails", func(t *testing.T) {
		tr := newTransport(t)
		defer func() { _ = tr.Close() }()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := tr.SendRaw(ctx, "takeoff")
		if !errors.Is(err, adapter.ErrTransportFailure) {
			t.Errorf("Expected ErrTransportFailure on cancelled context, got %v", err)
		}
	})

	t.Run("CloseIsIdempotentAndFinal", func(t *testing.T) {
		tr := newTransport(t)

		if err := tr.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
		if err := tr.Close(); err != nil {
			t.Errorf("Second Close() failed: %v", err)
		}

		err := tr.SendRaw(context.Background(), "land")
		if !errors.Is(err, adapter.ErrTransportFailure) {
			t.Errorf("Expected ErrTransportFailure after close, got %v", err)
		}

		select {
		case _, ok := <-tr.Responses():
			if ok {
				t.Error("Expected responses channel to be drained and closed")
			}
		case <-time.After(ReplyTimeout):
			t.Error("Responses channel not closed after Close()")
		}
	})
}

func awaitResponse(t *testing.T, tr adapter.Transport) adapter.Response {
	t.Helper()
	select {
	case resp, ok := <-tr.Responses():
		if !ok {
			t.Fatal("Responses channel closed unexpectedly")
		}
		return resp
	case <-time.After(ReplyTimeout):
		t.Fatal("Timed out waiting for response")
	}
	return adapter.Response{}
}
