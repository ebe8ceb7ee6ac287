package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
	"github.com/barbamx/tello-drone-pilot/internal/adaptertest"
)

func TestConformance(t *testing.T) {
	adaptertest.RunConformance(t, func(t *testing.T) adapter.Transport {
		return New()
	})
}

func TestSendErrorIsTransportFailure(t *testing.T) {
	tr := New()
	defer func() { _ = tr.Close() }()

	tr.SetSendError(errors.New("network down"))
	err := tr.SendRaw(context.Background(), "takeoff")
	if !errors.Is(err, adapter.ErrTransportFailure) {
		t.Fatalf("Expected ErrTransportFailure, got %v", err)
	}
	if tr.Count("takeoff") != 0 {
		t.Error("Failed send should not be recorded")
	}
}

func TestSilentResponder(t *testing.T) {
	tr := New()
	defer func() { _ = tr.Close() }()
	tr.SetResponder(Silent)

	if err := tr.SendRaw(context.Background(), "battery?"); err != nil {
		t.Fatalf("SendRaw() failed: %v", err)
	}

	select {
	case resp := <-tr.Responses():
		t.Fatalf("Expected no response, got %+v", resp)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDelayedReply(t *testing.T) {
	tr := New()
	defer func() { _ = tr.Close() }()
	tr.SetDelay(30 * time.Millisecond)

	start := time.Now()
	if err := tr.SendRaw(context.Background(), "land"); err != nil {
		t.Fatalf("SendRaw() failed: %v", err)
	}

	select {
	case resp := <-tr.Responses():
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("Expected reply after delay, got %v", elapsed)
		}
		if resp.Command != "land" || resp.Payload != "ok" {
			t.Errorf("Unexpected response %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for delayed reply")
	}
}

func TestCloseWithPendingReplies(t *testing.T) {
	tr := New()
	tr.SetDelay(time.Hour)

	if err := tr.SendRaw(context.Background(), "takeoff"); err != nil {
		t.Fatalf("SendRaw() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = tr.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() blocked on pending reply")
	}
}
