// Package fake provides an in-memory Transport for tests.
package fake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

// Responder decides the reply for a command. Returning ok=false drops the reply.
type Responder func(command string) (reply string, ok bool)

// Transport records every command and replies through a Responder.
type Transport struct {
	mu        sync.Mutex
	sent      []Sent
	responder Responder
	delay     time.Duration
	sendErr   error

	responses chan adapter.Response
	done      chan struct{}
	closed    bool
	wg        sync.WaitGroup
}

// Sent is one recorded transmission.
type Sent struct {
	Command string
	At      time.Time
}

var _ adapter.Transport = (*Transport)(nil)

// New creates a fake that answers like an idle Tello.
func New() *Transport {
	return &Transport{
		responder: DefaultResponder,
		responses: make(chan adapter.Response, 256),
		done:      make(chan struct{}),
	}
}

// DefaultResponder answers queries with fixed values and everything else with "ok".
func DefaultResponder(command string) (string, bool) {
	switch strings.TrimSpace(command) {
	case "battery?":
		return "87", true
	case "speed?":
		return "10.0", true
	case "height?":
		return "3dm", true
	default:
		return "ok", true
	}
}

// Silent never replies.
func Silent(string) (string, bool) { return "", false }

// SetResponder replaces the reply policy.
func (t *Transport) SetResponder(r Responder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responder = r
}

// SetDelay sets the reply latency.
func (t *Transport) SetDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
}

// SetSendError makes SendRaw fail with a transport failure wrapping err. nil clears it.
func (t *Transport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

// SendRaw implements adapter.Transport.
func (t *Transport) SendRaw(ctx context.Context, command string) error {
	select {
	case <-ctx.Done():
		return adapter.Wrap(adapter.ErrTransportFailure, command, ctx.Err())
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return adapter.Wrap(adapter.ErrTransportFailure, command, errors.New("transport closed"))
	}
	if t.sendErr != nil {
		return adapter.Wrap(adapter.ErrTransportFailure, command, t.sendErr)
	}

	t.sent = append(t.sent, Sent{Command: command, At: time.Now()})

	reply, ok := t.responder(command)
	if !ok {
		return nil
	}

	delay := t.delay
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-t.done:
				return
			}
		}
		t.deliver(adapter.Response{Command: command, Payload: reply, ReceivedAt: time.Now()})
	}()

	return nil
}

// Inject delivers an unsolicited response.
func (t *Transport) Inject(resp adapter.Response) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()
	t.deliver(resp)
}

func (t *Transport) deliver(resp adapter.Response) {
	select {
	case t.responses <- resp:
	case <-t.done:
	}
}

// Responses implements adapter.Transport.
func (t *Transport) Responses() <-chan adapter.Response {
	return t.responses
}

// Close implements adapter.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	t.wg.Wait()
	close(t.responses)
	return nil
}

// Sent returns a copy of every recorded transmission in order.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sent, len(t.sent))
	copy(out, t.sent)
	return out
}

// Commands returns the recorded command texts in order.
func (t *Transport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, s := range t.sent {
		out[i] = s.Command
	}
	return out
}

// Count returns how many times command was sent.
func (t *Transport) Count(command string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.sent {
		if s.Command == command {
			n++
		}
	}
	return n
}

// Index returns the position of the first send of command, or -1.
func (t *Transport) Index(command string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.sent {
		if s.Command == command {
			return i
		}
	}
	return -1
}
