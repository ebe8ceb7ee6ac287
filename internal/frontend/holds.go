package frontend

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

// HoldDetector turns repeated key presses into hold start/end edges.
// The first Press of a direction starts a hold; the hold ends once no
// Press for that direction arrives within the release timeout.
type HoldDetector struct {
	timeout time.Duration
	onStart func(movement.Direction)
	onEnd   func(movement.Direction)

	mu     sync.Mutex
	held   map[movement.Direction]*holdTimer
	closed bool
}

type holdTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewHoldDetector creates a detector. Callbacks run outside the detector lock,
// on the caller's goroutine for starts and on a timer goroutine for releases.
func NewHoldDetector(timeout time.Duration, onStart, onEnd func(movement.Direction)) *HoldDetector {
	return &HoldDetector{
		timeout: timeout,
		onStart: onStart,
		onEnd:   onEnd,
		held:    make(map[movement.Direction]*holdTimer),
	}
}

// NewIntentHolds wires a detector to the session hold intents.
func NewIntentHolds(ctx context.Context, intents session.Intents, timeout time.Duration) *HoldDetector {
	return NewHoldDetector(timeout,
		func(d movement.Direction) {
			if err := intents.OnHoldStart(ctx, d); err != nil {
				log.Printf("Frontend: hold %s start: %v", d, err)
			}
		},
		func(d movement.Direction) {
			if err := intents.OnHoldEnd(ctx, d); err != nil {
				log.Printf("Frontend: hold %s end: %v", d, err)
			}
		},
	)
}

// Press records a press or auto-repeat of d.
func (h *HoldDetector) Press(d movement.Direction) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	ht, active := h.held[d]
	if !active {
		ht = &holdTimer{}
		h.held[d] = ht
	} else {
		ht.timer.Stop()
	}
	ht.gen++
	gen := ht.gen
	ht.timer = time.AfterFunc(h.timeout, func() { h.expire(d, gen) })
	h.mu.Unlock()

	if !active {
		h.onStart(d)
	}
}

// Release ends the hold on d immediately, for inputs that report key-up.
func (h *HoldDetector) Release(d movement.Direction) {
	h.mu.Lock()
	ht, active := h.held[d]
	if active {
		ht.timer.Stop()
		delete(h.held, d)
	}
	h.mu.Unlock()

	if active {
		h.onEnd(d)
	}
}

func (h *HoldDetector) expire(d movement.Direction, gen uint64) {
	h.mu.Lock()
	ht, active := h.held[d]
	if !active || ht.gen != gen {
		h.mu.Unlock()
		return
	}
	delete(h.held, d)
	h.mu.Unlock()

	h.onEnd(d)
}

// Active returns the held directions in declaration order.
func (h *HoldDetector) Active() []movement.Direction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]movement.Direction, 0, len(h.held))
	for d := range h.held {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close releases every hold and ignores later presses.
func (h *HoldDetector) Close() {
	h.mu.Lock()
	h.closed = true
	released := make([]movement.Direction, 0, len(h.held))
	for d, ht := range h.held {
		ht.timer.Stop()
		released = append(released, d)
	}
	h.held = make(map[movement.Direction]*holdTimer)
	h.mu.Unlock()

	for _, d := range released {
		h.onEnd(d)
	}
}
