// Package udp implements adapter.Transport over the Tello text SDK.
//
// The vehicle listens on UDP 8889 and answers each command with a single
// datagram sent back to the originating port. Replies carry no correlation
// id, so the transport attributes them to outstanding commands in send order.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

const (
	readBufferSize = 1518
	// pendingTTL drops commands the vehicle never answered.
	pendingTTL   = 3 * time.Second
	readTimeout  = 250 * time.Millisecond
	errorBackoff = 100 * time.Millisecond
)

type pending struct {
	command string
	sentAt  time.Time
}

// Transport is a connected UDP socket to one vehicle.
type Transport struct {
	conn *net.UDPConn

	mu          sync.Mutex
	outstanding []pending
	lastCommand string
	closed      bool

	responses chan adapter.Response
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ adapter.Transport = (*Transport)(nil)

// Dial binds localAddr and connects to the vehicle at remoteAddr.
func Dial(localAddr, remoteAddr string) (*Transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, adapter.Wrap(adapter.ErrTransportFailure, "", fmt.Errorf("resolve %s: %w", remoteAddr, err))
	}

	var laddr *net.UDPAddr
	if localAddr != "" {
		laddr, err = net.ResolveUDPAddr("udp", localAddr)
		if err != nil {
			return nil, adapter.Wrap(adapter.ErrTransportFailure, "", fmt.Errorf("resolve %s: %w", localAddr, err))
		}
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, adapter.Wrap(adapter.ErrTransportFailure, "", fmt.Errorf("dial %s: %w", remoteAddr, err))
	}

	t := &Transport{
		conn:      conn,
		responses: make(chan adapter.Response, 64),
		done:      make(chan struct{}),
	}

	t.wg.Add(1)
	go t.listen()

	log.Printf("UDP transport connected %s -> %s", conn.LocalAddr(), raddr)
	return t, nil
}

// LocalAddr returns the bound local address.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// SendRaw implements adapter.Transport.
func (t *Transport) SendRaw(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return adapter.Wrap(adapter.ErrTransportFailure, command, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return adapter.Wrap(adapter.ErrTransportFailure, command, errors.New("transport closed"))
	}
	t.outstanding = append(t.outstanding, pending{command: command, sentAt: time.Now()})
	t.lastCommand = command
	t.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	} else {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := t.conn.Write([]byte(command)); err != nil {
		t.forget(command)
		return adapter.Wrap(adapter.ErrTransportFailure, command, err)
	}
	return nil
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

	err := t.conn.Close()
	t.wg.Wait()
	close(t.responses)
	return err
}

func (t *Transport) listen() {
	defer t.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := t.conn.Read(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			// ICMP port unreachable surfaces here while the vehicle is off
			log.Printf("UDP transport read error: %v", err)
			select {
			case <-t.done:
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		payload := strings.TrimSpace(string(buf[:n]))
		resp := adapter.Response{
			Command:    t.attribute(payload),
			Payload:    payload,
			ReceivedAt: time.Now(),
		}

		select {
		case t.responses <- resp:
		case <-t.done:
			return
		}
	}
}

// attribute picks the outstanding command a reply belongs to. Values go to the
// oldest query, "ok" to the oldest control command, rejections to the oldest of
// either. With nothing outstanding the reply goes to the last command sent.
func (t *Transport) attribute(payload string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	live := t.outstanding[:0]
	for _, p := range t.outstanding {
		if now.Sub(p.sentAt) <= pendingTTL {
			live = append(live, p)
		}
	}
	t.outstanding = live

	if len(t.outstanding) == 0 {
		return t.lastCommand
	}

	idx := 0
	switch {
	case adapter.IsRejection(payload):
	case adapter.IsAck(payload):
		idx = t.oldest(func(cmd string) bool { return !adapter.IsQuery(cmd) })
	default:
		idx = t.oldest(adapter.IsQuery)
	}

	command := t.outstanding[idx].command
	t.outstanding = append(t.outstanding[:idx], t.outstanding[idx+1:]...)
	return command
}

func (t *Transport) oldest(match func(string) bool) int {
	for i, p := range t.outstanding {
		if match(p.command) {
			return i
		}
	}
	return 0
}

func (t *Transport) forget(command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.outstanding) - 1; i >= 0; i-- {
		if t.outstanding[i].command == command {
			t.outstanding = append(t.outstanding[:i], t.outstanding[i+1:]...)
			return
		}
	}
}
