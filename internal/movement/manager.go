package movement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Tello SDK move distance limits.
const (
	MinDistanceCm = 20
	MaxDistanceCm = 500
)

var (
	ErrUnknownDirection = errors.New("unknown direction")
	ErrInvalidDistance  = errors.New("invalid distance")
)

// Sender is the fire-and-forget half of the command channel.
type Sender interface {
	Send(command string) error
}

// holdState is the per-direction slot. stop and done belong to one repeater;
// a new hold gets fresh channels, so a stale repeater can never be revived.
type holdState struct {
	mu     sync.Mutex
	active bool
	stop   chan struct{}
	done   chan struct{}
}

// Manager runs one repeater per held direction.
type Manager struct {
	sender     Sender
	distanceCm int
	interval   time.Duration

	holds [numDirections]holdState
}

// NewManager creates a manager sending distanceCm steps every interval while a direction is held.
func NewManager(sender Sender, distanceCm int, interval time.Duration) *Manager {
	return &Manager{
		sender:     sender,
		distanceCm: distanceCm,
		interval:   interval,
	}
}

// SendOnce sends a single move in d.
func (m *Manager) SendOnce(d Direction, distanceCm int) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	if distanceCm < MinDistanceCm || distanceCm > MaxDistanceCm {
		return fmt.Errorf("%w: %dcm outside [%d, %d]", ErrInvalidDistance, distanceCm, MinDistanceCm, MaxDistanceCm)
	}
	return m.sender.Send(d.Command(distanceCm))
}

// StartHold launches a repeater for d. It returns false if d was already held.
func (m *Manager) StartHold(d Direction) bool {
	if !d.Valid() {
		return false
	}
	h := &m.holds[d]

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active {
		return false
	}
	h.active = true
	h.stop = make(chan struct{})
	h.done = make(chan struct{})

	go m.repeat(d, h.stop, h.done)
	return true
}

// StopHold ends the hold on d. It returns false if d was not held. The
// repeater exits at its next check, at most one interval later.
func (m *Manager) StopHold(d Direction) bool {
	if !d.Valid() {
		return false
	}
	h := &m.holds[d]

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.active {
		return false
	}
	h.active = false
	close(h.stop)
	return true
}

// Active reports whether d is held.
func (m *Manager) Active(d Direction) bool {
	if !d.Valid() {
		return false
	}
	h := &m.holds[d]
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// ActiveHolds returns every held direction in declaration order.
func (m *Manager) ActiveHolds() []Direction {
	var out []Direction
	for _, d := range Directions() {
		if m.Active(d) {
			out = append(out, d)
		}
	}
	return out
}

// StopAll ends every hold.
func (m *Manager) StopAll() {
	for _, d := range Directions() {
		m.StopHold(d)
	}
}

// Wait blocks until every repeater launched so far has exited, or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	for i := range m.holds {
		h := &m.holds[i]
		h.mu.Lock()
		done := h.done
		h.mu.Unlock()
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) repeat(d Direction, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	cmd := d.Command(m.distanceCm)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := m.sender.Send(cmd); err != nil {
			log.Printf("Hold %s: send failed: %v", d, err)
		}

		timer.Reset(m.interval)
		select {
		case <-stop:
			return
		case <-timer.C:
		}
	}
}
