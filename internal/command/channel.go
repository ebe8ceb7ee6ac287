//
//
package command

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

var (
	errClosed    = errors.New("command channel closed")
	errQueueFull = errors.New("send queue full")
)

// sendTimeout bounds a single transport write.
const sendTimeout = time.Second

// Publisher receives channel activity. telemetry.Hub implements it.
type Publisher interface {
	PublishEvent(eventType string, data map[string]interface{})
}

// Stats counts channel activity since creation.
type Stats struct {
	Sent      int `json:"sent"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`
}

type entry struct {
	LogEntry
	done chan struct{} // closed once a reply is matched or the send fails
}

// Channel serializes commands to one vehicle and keeps the ordered command log.
type Channel struct {
	transport   adapter.Transport
	defaultWait time.Duration

	mu        sync.Mutex
	entries   []*entry
	stats     Stats
	publisher Publisher
	closed    bool

	queue     chan *entry
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts the writer and reply listener over transport. defaultWait is the
// query window used when QueryAndWait is called with wait <= 0.
func New(transport adapter.Transport, queueSize int, defaultWait time.Duration) *Channel {
	if queueSize <= 0 {
		queueSize = 64
	}
	c := &Channel{
		transport:   transport,
		defaultWait: defaultWait,
		queue:       make(chan *entry, queueSize),
		done:        make(chan struct{}),
	}

	c.wg.Add(2)
	go c.writer()
	go c.listener()

	return c
}

// SetPublisher sets the event publisher.
func (c *Channel) SetPublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = p
}

// Send logs command and hands it to the writer without waiting for the vehicle.
// Transport failures are recorded on the log entry; the only errors returned
// here are a closed channel or a full queue.
func (c *Channel) Send(command string) error {
	_, err := c.enqueue(command)
	return err
}

func (c *Channel) enqueue(command string) (*entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, adapter.Wrap(adapter.ErrTransportFailure, command, errClosed)
	}

	e := &entry{
		LogEntry: LogEntry{
			Seq:      uint64(len(c.entries) + 1),
			Command:  command,
			IssuedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	c.entries = append(c.entries, e)

	// enqueue under the lock so queue order matches log order
	select {
	case c.queue <- e:
	default:
		e.Err = adapter.Wrap(adapter.ErrTransportFailure, command, errQueueFull)
		c.stats.Failed++
		close(e.done)
		return e, e.Err
	}

	return e, nil
}

// QueryAndWait sends command, waits up to wait for a reply, then returns the
// newest matching reply issued at or after this query. A reply that arrives
// after the window still lands in the log.
func (c *Channel) QueryAndWait(ctx context.Context, command string, wait time.Duration) (string, error) {
	if wait <= 0 {
		wait = c.defaultWait
	}

	e, err := c.enqueue(command)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-e.done:
	case <-timer.C:
	case <-ctx.Done():
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Err != nil && !e.Responded() {
		return "", e.Err
	}

	for i := len(c.entries) - 1; i >= 0; i-- {
		x := c.entries[i]
		if x.Seq < e.Seq {
			break
		}
		if x.Command == command && x.Responded() {
			return x.Response, x.Err
		}
	}

	return "", adapter.Wrap(adapter.ErrTimeout, command, ctx.Err())
}

// Exec sends command and waits for its own reply. Vehicle refusals come back as ErrRejected.
func (c *Channel) Exec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	e, err := c.enqueue(command)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.done:
	case <-timer.C:
	case <-ctx.Done():
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Responded() {
		return e.Response, e.Err
	}
	if e.Err != nil {
		return "", e.Err
	}
	return "", adapter.Wrap(adapter.ErrTimeout, command, ctx.Err())
}

// Entries returns a copy of the log in issue order.
func (c *Channel) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LogEntry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.LogEntry
	}
	return out
}

// Lines renders the log one entry per line.
func (c *Channel) Lines() []string {
	entries := c.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// Stats returns activity counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the writer and listener and closes the transport. Queued commands
// that were never written are marked failed.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		err = c.transport.Close()
		c.wg.Wait()

		c.mu.Lock()
		defer c.mu.Unlock()
		for {
			select {
			case e := <-c.queue:
				e.Err = adapter.Wrap(adapter.ErrTransportFailure, e.Command, errClosed)
				c.stats.Failed++
				close(e.done)
			default:
				return
			}
		}
	})
	return err
}

func (c *Channel) writer() {
	defer c.wg.Done()

	for {
		select {
		case e := <-c.queue:
			c.transmit(e)
		case <-c.done:
			return
		}
	}
}

func (c *Channel) transmit(e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	err := c.transport.SendRaw(ctx, e.Command)
	cancel()

	c.mu.Lock()
	if err != nil {
		if !errors.Is(err, adapter.ErrTransportFailure) {
			err = adapter.Wrap(adapter.ErrTransportFailure, e.Command, err)
		}
		if !e.Responded() {
			e.Err = err
			close(e.done)
		}
		c.stats.Failed++
	} else {
		c.stats.Sent++
	}
	p := c.publisher
	seq := e.Seq
	c.mu.Unlock()

	if err != nil {
		log.Printf("Command %q failed: %v", e.Command, err)
		c.publish(p, "fault", map[string]interface{}{
			"seq":     seq,
			"command": e.Command,
			"error":   err.Error(),
		})
		return
	}
	c.publish(p, "command", map[string]interface{}{
		"seq":     seq,
		"command": e.Command,
	})
}

func (c *Channel) listener() {
	defer c.wg.Done()

	for resp := range c.transport.Responses() {
		c.resolve(resp)
	}
}

// resolve attaches resp to the most recent unresolved entry with the same command text.
func (c *Channel) resolve(resp adapter.Response) {
	payload := strings.TrimSpace(resp.Payload)
	at := resp.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}

	c.mu.Lock()
	var matched *entry
	for i := len(c.entries) - 1; i >= 0; i-- {
		e := c.entries[i]
		if e.Command == resp.Command && !e.Responded() && e.Err == nil {
			matched = e
			break
		}
	}
	if matched == nil {
		c.stats.Unmatched++
		c.mu.Unlock()
		log.Printf("Unmatched response %q for command %q", payload, resp.Command)
		return
	}

	matched.Response = payload
	matched.RespondedAt = at
	matched.Err = adapter.NormalizeReply(matched.Command, payload)
	c.stats.Resolved++
	close(matched.done)
	p := c.publisher
	data := map[string]interface{}{
		"seq":       matched.Seq,
		"command":   matched.Command,
		"response":  payload,
		"latencyMs": matched.Latency().Milliseconds(),
	}
	c.mu.Unlock()

	c.publish(p, "response", data)
}

func (c *Channel) publish(p Publisher, eventType string, data map[string]interface{}) {
	if p == nil {
		return
	}
	p.PublishEvent(eventType, data)
}
