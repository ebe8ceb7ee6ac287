//
//
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one server-sent event.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type client struct {
	id     string
	writer http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	types  map[string]bool // nil means all types
	events chan Event // never closed; publishers may still hold it
	mu     sync.Mutex // guards writer
}

func (c *client) wants(eventType string) bool {
	return c.types == nil || c.types[eventType] || eventType == "heartbeat"
}

// Hub fans out session events to SSE clients and keeps a replay ring for
// Last-Event-ID resume. The ring has its own lock and is never touched under h.mu.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	nextID  atomic.Int64
	ring    *ring

	heartbeatInterval time.Duration
	stopHeartbeat     chan struct{}

	// Snapshot is sent as the ready event payload when set.
	snapshot func() map[string]interface{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub that buffers bufferSize events for replay and sends a
// heartbeat every heartbeatInterval while clients are connected.
func NewHub(bufferSize int, heartbeatInterval time.Duration) *Hub {
	return &Hub{
		clients:           make(map[string]*client),
		ring:              newRing(bufferSize),
		heartbeatInterval: heartbeatInterval,
		done:              make(chan struct{}),
	}
}

// SetSnapshotFunc sets the source of the ready event payload.
func (h *Hub) SetSnapshotFunc(fn func() map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// PublishEvent implements command.Publisher and EventPublisher.
func (h *Hub) PublishEvent(eventType string, data map[string]interface{}) {
	h.Publish(Event{Type: eventType, Data: data})
}

// Publish assigns an id, buffers the event and sends it to every client.
// Slow clients drop the event rather than block the publisher.
func (h *Hub) Publish(event Event) {
	select {
	case <-h.done:
		return
	default:
	}

	if event.ID == 0 {
		event.ID = h.nextID.Add(1)
	}
	if event.Type != "heartbeat" {
		h.ring.add(event)
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.wants(event.Type) {
			continue
		}
		select {
		case <-c.ctx.Done():
		case <-h.done:
			return
		case c.events <- event:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Subscribe streams events to w until the request or hub ends. The optional
// "types" query parameter is a comma-separated filter.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)
	c := &client{
		id:     fmt.Sprintf("client_%d", time.Now().UnixNano()),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
		types:  parseTypes(r.URL.Query().Get("types")),
		events: make(chan Event, 100),
	}

	var lastID int64
	if s := r.Header.Get("Last-Event-ID"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			lastID = id
		}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if len(h.clients) == 1 && h.stopHeartbeat == nil {
		h.startHeartbeat()
	}
	snapshot := h.snapshot
	h.mu.Unlock()

	ready := Event{Type: "ready", Data: map[string]interface{}{}}
	if snapshot != nil {
		ready.Data = snapshot()
	}
	if err := h.write(c, ready); err != nil {
		h.unregister(c.id)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastID > 0 {
		for _, e := range h.ring.after(lastID) {
			if !c.wants(e.Type) {
				continue
			}
			if err := h.write(c, e); err != nil {
				h.unregister(c.id)
				return fmt.Errorf("failed to replay events: %w", err)
			}
		}
	}

	h.serve(c)
	return nil
}

func (h *Hub) serve(c *client) {
	defer h.unregister(c.id)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-h.done:
			return
		case e := <-c.events:
			if err := h.write(c, e); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(c *client, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if e.ID > 0 {
		if _, err := fmt.Fprintf(c.writer, "id: %d\n", e.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(c.writer, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	if f, ok := c.writer.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}
	c.cancel()
	delete(h.clients, id)

	if len(h.clients) == 0 && h.stopHeartbeat != nil {
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
}

// startHeartbeat must be called with h.mu held.
func (h *Hub) startHeartbeat() {
	stop := make(chan struct{})
	h.stopHeartbeat = stop
	interval := h.heartbeatInterval

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.Publish(Event{
					Type: "heartbeat",
					Data: map[string]interface{}{"ts": time.Now().UTC().Format(time.RFC3339)},
				})
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client and waits up to 5s for background work.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for _, c := range h.clients {
			c.cancel()
		}
		if h.stopHeartbeat != nil {
			close(h.stopHeartbeat)
			h.stopHeartbeat = nil
		}
		h.mu.Unlock()

		finished := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
		}
	})
}

func parseTypes(s string) map[string]bool {
	if s == "" {
		return nil
	}
	types := make(map[string]bool)
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types[t] = true
		}
	}
	return types
}

// ring is a fixed-capacity replay buffer ordered by event id.
type ring struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{events: make([]Event, 0, capacity), capacity: capacity}
}

func (r *ring) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if len(r.events) > r.capacity {
		r.events = r.events[1:]
	}
}

func (r *ring) after(id int64) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if e.ID > id {
			out = append(out, e)
		}
	}
	return out
}

func (r *ring) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
