//
//
package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Querier is the query half of the command channel.
type Querier interface {
	QueryAndWait(ctx context.Context, command string, wait time.Duration) (string, error)
}

// EventPublisher receives completed snapshots. Hub implements it.
type EventPublisher interface {
	PublishEvent(eventType string, data map[string]interface{})
}

// Poller refreshes a Snapshot by querying battery, speed and height in turn.
type Poller struct {
	querier  Querier
	interval time.Duration
	wait     time.Duration

	mu        sync.RWMutex
	latest    Snapshot
	publisher EventPublisher

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a poller that runs a cycle every interval and waits up to
// wait for each reply.
func NewPoller(querier Querier, interval, wait time.Duration) *Poller {
	return &Poller{
		querier:  querier,
		interval: interval,
		wait:     wait,
		stop:     make(chan struct{}),
	}
}

// SetPublisher sets the snapshot publisher.
func (p *Poller) SetPublisher(pub EventPublisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publisher = pub
}

// Latest returns the most recent snapshot.
func (p *Poller) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// PollOnce runs one cycle. A field whose query or parse fails keeps its previous value.
func (p *Poller) PollOnce(ctx context.Context) Snapshot {
	next := p.Latest()
	errs := make(map[string]string)

	if v, err := queryField(ctx, p, "battery?", ParseBattery); err != nil {
		errs["battery"] = err.Error()
	} else {
		next.BatteryPercent = &v
	}

	if v, err := queryField(ctx, p, "speed?", ParseSpeed); err != nil {
		errs["speed"] = err.Error()
	} else {
		next.SpeedCmPerSec = &v
	}

	if v, err := queryField(ctx, p, "height?", ParseHeight); err != nil {
		errs["altitude"] = err.Error()
	} else {
		next.AltitudeCm = &v
	}

	next.SampledAt = time.Now()
	next.Errors = nil
	if len(errs) > 0 {
		next.Errors = errs
	}

	p.mu.Lock()
	p.latest = next
	pub := p.publisher
	p.mu.Unlock()

	if pub != nil {
		pub.PublishEvent("telemetry", snapshotData(next))
	}
	return next
}

func queryField[T any](ctx context.Context, p *Poller, command string, parse func(string) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telemetry query %q panicked: %v", command, r)
		}
	}()

	reply, err := p.querier.QueryAndWait(ctx, command, p.wait)
	if err != nil {
		return v, err
	}
	return parse(reply)
}

// Run polls immediately, then every interval, until ctx is done or Stop is called.
// A cycle in flight is allowed to finish.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		snap := p.PollOnce(ctx)
		if len(snap.Errors) > 0 {
			log.Printf("Telemetry cycle partial: %v", snap.Errors)
		}

		// a slow cycle leaves a tick pending; Stop must win over it
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop ends Run after the current cycle.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func snapshotData(s Snapshot) map[string]interface{} {
	data := map[string]interface{}{
		"sampledAt": s.SampledAt.UTC().Format(time.RFC3339Nano),
	}
	if s.BatteryPercent != nil {
		data["batteryPercent"] = *s.BatteryPercent
	}
	if s.SpeedCmPerSec != nil {
		data["speedCmPerSec"] = *s.SpeedCmPerSec
	}
	if s.AltitudeCm != nil {
		data["altitudeCm"] = *s.AltitudeCm
	}
	if len(s.Errors) > 0 {
		data["errors"] = s.Errors
	}
	return data
}
