package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

type fakeIntents struct {
	mu      sync.Mutex
	calls   []string
	status  session.Status
	done    chan struct{}
	failErr error
}

func newFakeIntents() *fakeIntents {
	return &fakeIntents{
		status: session.Status{State: session.Ready},
		done:   make(chan struct{}),
	}
}

func (f *fakeIntents) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeIntents) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIntents) OnDiscreteAction(ctx context.Context, a session.Action) error {
	f.record(a.String())
	return f.failErr
}

func (f *fakeIntents) OnHoldStart(ctx context.Context, d movement.Direction) error {
	f.record("holdStart " + d.String())
	return nil
}

func (f *fakeIntents) OnHoldEnd(ctx context.Context, d movement.Direction) error {
	f.record("holdEnd " + d.String())
	return nil
}

func (f *fakeIntents) OnQuit(ctx context.Context) { f.record("quit") }

func (f *fakeIntents) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeIntents) Done() <-chan struct{} { return f.done }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelDiscreteKeys(t *testing.T) {
	intents := newFakeIntents()
	model := NewModel(context.Background(), intents, time.Hour)

	updated, command := model.Update(runes("t"))
	if command == nil {
		t.Fatal("t key should return a command")
	}
	updated, _ = updated.Update(command())

	updated, command = updated.Update(tea.KeyMsg{Type: tea.KeyDelete})
	updated, _ = updated.Update(command())

	_, command = updated.Update(tea.KeyMsg{Type: tea.KeySpace})
	command()

	want := []string{"takeoff", "land", "emergency"}
	if got := intents.Calls(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestModelShowsActionError(t *testing.T) {
	intents := newFakeIntents()
	intents.failErr = session.ErrShuttingDown
	model := NewModel(context.Background(), intents, time.Hour)

	updated, command := model.Update(runes("l"))
	updated, _ = updated.Update(command())

	view := updated.View()
	if !strings.Contains(view, "land failed: SHUTTING_DOWN") {
		t.Errorf("Expected error in view, got:\n%s", view)
	}
}

func TestModelMovementKeysStartHolds(t *testing.T) {
	intents := newFakeIntents()
	model := NewModel(context.Background(), intents, time.Hour)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyUp})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyUp})
	updated, _ = updated.Update(runes("w"))

	want := "holdStart up,holdStart forward"
	if got := strings.Join(intents.Calls(), ","); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	updated.(Model).holds.Close()
	if got := len(intents.Calls()); got != 4 {
		t.Errorf("Expected both holds released on close, got %v", intents.Calls())
	}
}

func TestModelQuitWaitsForSession(t *testing.T) {
	intents := newFakeIntents()
	model := NewModel(context.Background(), intents, time.Hour)

	updated, command := model.Update(runes("q"))
	if command != nil {
		t.Error("q should not quit the program before the session terminates")
	}
	if got := intents.Calls(); len(got) != 1 || got[0] != "quit" {
		t.Fatalf("Expected quit intent, got %v", got)
	}

	updated, command = updated.Update(runes("t"))
	if command != nil || len(intents.Calls()) != 1 {
		t.Error("Keys after quit should be ignored")
	}

	close(intents.done)
	message := waitForSessionDone(intents.Done())()
	_, command = updated.Update(message)
	if command == nil {
		t.Fatal("session done should return a command")
	}
	if _, isQuit := command().(tea.QuitMsg); !isQuit {
		t.Errorf("expected QuitMsg, got %T", command())
	}
}

func TestModelView(t *testing.T) {
	intents := newFakeIntents()
	battery := 64
	intents.status = session.Status{
		State:       session.Flying,
		Flying:      true,
		ActiveHolds: []movement.Direction{movement.Left, movement.Up},
	}
	intents.status.Telemetry.BatteryPercent = &battery
	model := NewModel(context.Background(), intents, time.Hour)

	updated, _ := model.Update(refreshMsg(time.Now()))
	view := updated.View()

	for _, want := range []string{"Flying", "left, up", "Battery: 64% | Speed: -- | Altitude: --", "q/esc quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q:\n%s", want, view)
		}
	}
}

func TestModelIgnoresUnboundKeys(t *testing.T) {
	intents := newFakeIntents()
	model := NewModel(context.Background(), intents, time.Hour)

	_, command := model.Update(runes("x"))
	if command != nil || len(intents.Calls()) != 0 {
		t.Errorf("Unbound key should do nothing, got %v", intents.Calls())
	}
}
