package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

// scriptedQuerier answers each command from a map; missing keys time out.
type scriptedQuerier struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []string
}

func (q *scriptedQuerier) QueryAndWait(ctx context.Context, command string, wait time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, command)
	reply, ok := q.replies[command]
	if !ok {
		return "", adapter.Wrap(adapter.ErrTimeout, command, nil)
	}
	return reply, nil
}

func (q *scriptedQuerier) set(command, reply string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.replies[command] = reply
}

func (q *scriptedQuerier) drop(command string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.replies, command)
}

func (q *scriptedQuerier) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.calls)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (p *capturePublisher) PublishEvent(eventType string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if eventType == "telemetry" {
		p.events = append(p.events, data)
	}
}

func TestParseBattery(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"87", 87, false},
		{" 100\r\n", 100, false},
		{"0", 0, false},
		{"101", 0, true},
		{"-1", 0, true},
		{"ok", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBattery(tt.in)
		if tt.wantErr {
			if !errors.Is(err, adapter.ErrParseFailure) {
				t.Errorf("ParseBattery(%q) expected ErrParseFailure, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseBattery(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestParseSpeed(t *testing.T) {
	if got, err := ParseSpeed("100.0\r\n"); err != nil || got != 100.0 {
		t.Errorf("ParseSpeed() = %v, %v; want 100.0", got, err)
	}
	if _, err := ParseSpeed("fast"); !errors.Is(err, adapter.ErrParseFailure) {
		t.Errorf("Expected ErrParseFailure, got %v", err)
	}
	if _, err := ParseSpeed("-3"); !errors.Is(err, adapter.ErrParseFailure) {
		t.Errorf("Expected ErrParseFailure for negative speed, got %v", err)
	}
	for _, in := range []string{"nan", "NaN", "inf", "+Inf", "-inf", "1e400"} {
		if v, err := ParseSpeed(in); !errors.Is(err, adapter.ErrParseFailure) {
			t.Errorf("ParseSpeed(%q) = %v, %v; want ErrParseFailure", in, v, err)
		}
	}
}

func TestPollOnceNonFiniteSpeedKeepsSnapshotEncodable(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{"battery?": "87", "speed?": "10.0", "height?": "3dm"}}
	p := NewPoller(q, time.Hour, time.Millisecond)
	p.PollOnce(context.Background())

	q.set("speed?", "nan")
	snap := p.PollOnce(context.Background())
	if snap.SpeedCmPerSec == nil || *snap.SpeedCmPerSec != 10.0 {
		t.Errorf("Expected prior speed 10.0 to be kept, got %v", snap.SpeedCmPerSec)
	}
	if _, ok := snap.Errors["speed"]; !ok {
		t.Errorf("Expected speed error, got %v", snap.Errors)
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Errorf("Snapshot must stay encodable: %v", err)
	}
	if _, err := json.Marshal(snapshotData(snap)); err != nil {
		t.Errorf("Snapshot event must stay encodable: %v", err)
	}
}

func TestParseHeight(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"10dm", 100, false},
		{"0dm", 0, false},
		{"30", 30, false},
		{"45cm", 45, false},
		{" 3dm\r\n", 30, false},
		{"dm", 0, true},
		{"error", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHeight(tt.in)
		if tt.wantErr {
			if !errors.Is(err, adapter.ErrParseFailure) {
				t.Errorf("ParseHeight(%q) expected ErrParseFailure, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseHeight(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestPollOnceFull(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{"battery?": "87", "speed?": "10.0", "height?": "3dm"}}
	p := NewPoller(q, 2*time.Second, 500*time.Millisecond)

	snap := p.PollOnce(context.Background())
	if snap.BatteryPercent == nil || *snap.BatteryPercent != 87 {
		t.Errorf("Expected battery 87, got %v", snap.BatteryPercent)
	}
	if snap.SpeedCmPerSec == nil || *snap.SpeedCmPerSec != 10.0 {
		t.Errorf("Expected speed 10.0, got %v", snap.SpeedCmPerSec)
	}
	if snap.AltitudeCm == nil || *snap.AltitudeCm != 30 {
		t.Errorf("Expected altitude 30, got %v", snap.AltitudeCm)
	}
	if len(snap.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", snap.Errors)
	}
	if strings.Join(q.calls, ",") != "battery?,speed?,height?" {
		t.Errorf("Expected queries in order, got %v", q.calls)
	}
}

func TestPollOncePartialUpdateKeepsPriorValues(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{"battery?": "87", "speed?": "10.0", "height?": "3dm"}}
	p := NewPoller(q, 2*time.Second, 500*time.Millisecond)
	p.PollOnce(context.Background())

	q.set("battery?", "85")
	q.drop("speed?")
	q.set("height?", "garbage")

	snap := p.PollOnce(context.Background())
	if *snap.BatteryPercent != 85 {
		t.Errorf("Expected battery updated to 85, got %d", *snap.BatteryPercent)
	}
	if *snap.SpeedCmPerSec != 10.0 {
		t.Errorf("Expected speed kept at 10.0, got %v", *snap.SpeedCmPerSec)
	}
	if *snap.AltitudeCm != 30 {
		t.Errorf("Expected altitude kept at 30, got %d", *snap.AltitudeCm)
	}
	if _, ok := snap.Errors["speed"]; !ok {
		t.Error("Expected speed error recorded")
	}
	if _, ok := snap.Errors["altitude"]; !ok {
		t.Error("Expected altitude error recorded")
	}
}

func TestPollOnceAllFailLeavesUnknown(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{}}
	p := NewPoller(q, 2*time.Second, 500*time.Millisecond)

	snap := p.PollOnce(context.Background())
	if snap.BatteryPercent != nil || snap.SpeedCmPerSec != nil || snap.AltitudeCm != nil {
		t.Errorf("Expected all fields unknown, got %+v", snap)
	}
	if got := snap.String(); got != "Battery: -- | Speed: -- | Altitude: --" {
		t.Errorf("Unexpected String(): %q", got)
	}
}

func TestPollOncePublishes(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{"battery?": "50"}}
	p := NewPoller(q, 2*time.Second, 500*time.Millisecond)
	pub := &capturePublisher{}
	p.SetPublisher(pub)

	p.PollOnce(context.Background())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("Expected one telemetry event, got %d", len(pub.events))
	}
	if pub.events[0]["batteryPercent"] != 50 {
		t.Errorf("Expected batteryPercent 50, got %v", pub.events[0]["batteryPercent"])
	}
	if _, ok := pub.events[0]["speedCmPerSec"]; ok {
		t.Error("Unknown speed must be omitted")
	}
}

func TestRunCyclesUntilStopped(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{"battery?": "87", "speed?": "1", "height?": "1"}}
	p := NewPoller(q, 30*time.Millisecond, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	p.Stop()
	p.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}

	cycles := q.callCount() / 3
	if cycles < 2 || cycles > 5 {
		t.Errorf("Expected 2-5 cycles in 100ms at 30ms, got %d", cycles)
	}

	before := q.callCount()
	time.Sleep(80 * time.Millisecond)
	if q.callCount() != before {
		t.Error("Queries continued after Stop()")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{}}
	p := NewPoller(q, time.Hour, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

// gatedQuerier blocks its first query until release is closed.
type gatedQuerier struct {
	*scriptedQuerier
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (q *gatedQuerier) QueryAndWait(ctx context.Context, command string, wait time.Duration) (string, error) {
	first := false
	q.once.Do(func() { first = true })
	if first {
		close(q.entered)
		<-q.release
	}
	return q.scriptedQuerier.QueryAndWait(ctx, command, wait)
}

func TestRunStopDuringSlowCycleSkipsPendingTick(t *testing.T) {
	q := &gatedQuerier{
		scriptedQuerier: &scriptedQuerier{replies: map[string]string{"battery?": "87", "speed?": "1", "height?": "1"}},
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	p := NewPoller(q, 10*time.Millisecond, time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	<-q.entered
	// let the ticker fire while the first cycle is still blocked
	time.Sleep(50 * time.Millisecond)
	p.Stop()
	close(q.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
	if n := q.callCount(); n != 3 {
		t.Errorf("Expected exactly one cycle (3 queries), got %d", n)
	}
}
