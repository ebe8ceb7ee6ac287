package frontend

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		key  string
		want Intent
	}{
		{"t", Intent{Kind: KindAction, Action: session.Takeoff}},
		{"T", Intent{Kind: KindAction, Action: session.Takeoff}},
		{"enter", Intent{Kind: KindAction, Action: session.Takeoff}},
		{"delete", Intent{Kind: KindAction, Action: session.Land}},
		{" ", Intent{Kind: KindAction, Action: session.Emergency}},
		{"up", Intent{Kind: KindHold, Direction: movement.Up}},
		{"w", Intent{Kind: KindHold, Direction: movement.Forward}},
		{"S", Intent{Kind: KindHold, Direction: movement.Back}},
		{"a", Intent{Kind: KindHold, Direction: movement.Left}},
		{"esc", Intent{Kind: KindQuit}},
	}
	for _, tt := range tests {
		got, ok := Lookup(tt.key)
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = %+v, %v; want %+v", tt.key, got, ok, tt.want)
		}
	}

	for _, key := range []string{"x", "ESC", "f1", ""} {
		if _, ok := Lookup(key); ok {
			t.Errorf("Lookup(%q) expected no binding", key)
		}
	}
}

type edgeRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *edgeRecorder) start(d movement.Direction) { r.add("start " + d.String()) }
func (r *edgeRecorder) end(d movement.Direction)   { r.add("end " + d.String()) }

func (r *edgeRecorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *edgeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestHoldDetectorRepeatsExtendHold(t *testing.T) {
	rec := &edgeRecorder{}
	h := NewHoldDetector(60*time.Millisecond, rec.start, rec.end)

	for i := 0; i < 5; i++ {
		h.Press(movement.Left)
		time.Sleep(20 * time.Millisecond)
	}
	if got := rec.snapshot(); !reflect.DeepEqual(got, []string{"start left"}) {
		t.Fatalf("Expected one start while repeating, got %v", got)
	}
	if got := h.Active(); !reflect.DeepEqual(got, []movement.Direction{movement.Left}) {
		t.Errorf("Active() = %v", got)
	}

	time.Sleep(150 * time.Millisecond)
	if got := rec.snapshot(); !reflect.DeepEqual(got, []string{"start left", "end left"}) {
		t.Fatalf("Expected release after timeout, got %v", got)
	}
	if len(h.Active()) != 0 {
		t.Errorf("Expected no active holds, got %v", h.Active())
	}
}

func TestHoldDetectorIndependentDirections(t *testing.T) {
	rec := &edgeRecorder{}
	h := NewHoldDetector(time.Hour, rec.start, rec.end)
	defer h.Close()

	h.Press(movement.Up)
	h.Press(movement.Forward)
	h.Press(movement.Up)
	h.Release(movement.Up)
	h.Release(movement.Up)

	want := []string{"start up", "start forward", "end up"}
	if got := rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := h.Active(); !reflect.DeepEqual(got, []movement.Direction{movement.Forward}) {
		t.Errorf("Active() = %v", got)
	}
}

func TestHoldDetectorClose(t *testing.T) {
	rec := &edgeRecorder{}
	h := NewHoldDetector(time.Hour, rec.start, rec.end)

	h.Press(movement.Down)
	h.Close()
	h.Press(movement.Down)

	if got := rec.snapshot(); !reflect.DeepEqual(got, []string{"start down", "end down"}) {
		t.Errorf("Expected close to release and ignore later presses, got %v", got)
	}
}

type holdIntents struct {
	session.Intents
	edgeRecorder
}

func (h *holdIntents) OnHoldStart(ctx context.Context, d movement.Direction) error {
	h.start(d)
	return nil
}

func (h *holdIntents) OnHoldEnd(ctx context.Context, d movement.Direction) error {
	h.end(d)
	return session.ErrShuttingDown
}

func TestNewIntentHolds(t *testing.T) {
	in := &holdIntents{}
	h := NewIntentHolds(context.Background(), in, 30*time.Millisecond)

	h.Press(movement.Right)
	deadline := time.Now().Add(time.Second)
	for len(in.snapshot()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Hold never released, got %v", in.snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := in.snapshot(); !reflect.DeepEqual(got, []string{"start right", "end right"}) {
		t.Errorf("Expected start/end intents, got %v", got)
	}
}
