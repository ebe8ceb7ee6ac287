//
//
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
	"github.com/barbamx/tello-drone-pilot/internal/audit"
	"github.com/barbamx/tello-drone-pilot/internal/command"
	"github.com/barbamx/tello-drone-pilot/internal/config"
	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/telemetry"
)

// Status is a point-in-time view of the session.
type Status struct {
	State        State                `json:"state"`
	Flying       bool                 `json:"isFlying"`
	ShuttingDown bool                 `json:"isShuttingDown"`
	ActiveHolds  []movement.Direction `json:"activeHolds"`
	Telemetry    telemetry.Snapshot   `json:"telemetry"`
	Commands     command.Stats        `json:"commands"`
}

// Result describes how shutdown went. Land and flush failures are reported
// here and never stop the sequence.
type Result struct {
	LandReply string
	LandErr   error
	LogPath   string
	FlushErr  error
	Entries   int
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink replaces the default file sink for the session log.
func WithSink(s audit.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithAuditor records every intent.
func WithAuditor(a Auditor) Option {
	return func(c *Controller) { c.auditor = a }
}

// WithPublisher sends session, command and telemetry events to p.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// Controller owns the command channel for one flight and drives the
// Initializing -> Ready -> Flying/Grounded -> ShuttingDown -> Terminated lifecycle.
type Controller struct {
	cfg *config.Config

	channel *command.Channel
	moves   *movement.Manager
	poller  *telemetry.Poller

	sink      audit.Sink
	auditor   Auditor
	publisher Publisher

	mu           sync.RWMutex
	state        State
	flying       bool
	shuttingDown bool
	started      bool
	pollDone     chan struct{}
	result       Result
	resultErr    error

	shutdownOnce sync.Once
	done         chan struct{}
}

// New builds the channel, movement manager and poller over transport. The
// controller owns the channel; it is closed by Shutdown.
func New(transport adapter.Transport, cfg *config.Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:   cfg,
		state: Initializing,
		done:  make(chan struct{}),
	}

	c.channel = command.New(transport, cfg.Vehicle.QueueSize, cfg.Telemetry.QueryWait())
	c.moves = movement.NewManager(c.channel, cfg.Movement.DistanceCm, cfg.Movement.RepeatInterval())
	c.poller = telemetry.NewPoller(c.channel, cfg.Telemetry.PollInterval(), cfg.Telemetry.QueryWait())
	c.sink = audit.NewFileSink(cfg.Session.LogDir, cfg.Session.LogPrefix)

	for _, opt := range opts {
		opt(c)
	}

	if c.publisher != nil {
		c.channel.SetPublisher(c.publisher)
		c.poller.SetPublisher(c.publisher)
	}
	return c
}

// Start sends the handshake, waits the settle time and starts the telemetry
// cycle. If ctx ends during the settle, the session stays Initializing and the
// caller is expected to Shutdown.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return ErrShuttingDown
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	handshake := c.cfg.Vehicle.HandshakeCommand
	if err := c.channel.Send(handshake); err != nil {
		return fmt.Errorf("handshake %q: %w", handshake, err)
	}
	log.Printf("Session: handshake sent, settling for %v", c.cfg.Vehicle.SettleTime())

	timer := time.NewTimer(c.cfg.Vehicle.SettleTime())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrShuttingDown
	}

	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return ErrShuttingDown
	}
	c.state = Ready
	pollDone := make(chan struct{})
	c.pollDone = pollDone
	c.mu.Unlock()

	go func() {
		defer close(pollDone)
		c.poller.Run(context.Background())
	}()

	c.publishState()
	log.Printf("Session: ready")
	return nil
}

// Takeoff sends "takeoff" and marks the session flying without waiting for the vehicle.
func (c *Controller) Takeoff() error {
	return c.discrete("takeoff", true, Flying)
}

// Land sends "land" and marks the session grounded without waiting for the vehicle.
func (c *Controller) Land() error {
	return c.discrete("land", false, Grounded)
}

// Emergency sends "emergency" and marks the session grounded. Active holds
// keep running; callers wanting a full stop also call StopAllHolds.
func (c *Controller) Emergency() error {
	return c.discrete("emergency", false, Grounded)
}

func (c *Controller) discrete(cmd string, flying bool, next State) error {
	if err := c.checkActive(); err != nil {
		return err
	}
	if err := c.channel.Send(cmd); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.shuttingDown {
		c.flying = flying
		c.state = next
	}
	c.mu.Unlock()

	c.publishState()
	return nil
}

// MoveOnce sends a single step in d at the configured distance.
func (c *Controller) MoveOnce(d movement.Direction) error {
	if err := c.checkActive(); err != nil {
		return err
	}
	return c.moves.SendOnce(d, c.cfg.Movement.DistanceCm)
}

// HoldStart begins repeating d. Holding an already held direction is a no-op.
func (c *Controller) HoldStart(d movement.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", movement.ErrUnknownDirection, int(d))
	}

	// shutdown takes the write lock before StopAll, so a hold started under
	// the read lock is always seen and stopped by it
	c.mu.RLock()
	err := c.activeLocked()
	started := err == nil && c.moves.StartHold(d)
	c.mu.RUnlock()

	if err != nil {
		return err
	}
	if started {
		c.publishHolds()
	}
	return nil
}

// HoldEnd stops repeating d. Releasing a direction that is not held is a no-op.
func (c *Controller) HoldEnd(d movement.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", movement.ErrUnknownDirection, int(d))
	}
	if c.moves.StopHold(d) {
		c.publishHolds()
	}
	return nil
}

// StopAllHolds releases every held direction.
func (c *Controller) StopAllHolds() {
	c.moves.StopAll()
	c.publishHolds()
}

// OnDiscreteAction dispatches a one-shot intent.
func (c *Controller) OnDiscreteAction(ctx context.Context, a Action) error {
	var err error
	switch a.Kind {
	case ActionTakeoff:
		err = c.Takeoff()
	case ActionLand:
		err = c.Land()
	case ActionEmergency:
		err = c.Emergency()
	case ActionMoveOnce:
		err = c.MoveOnce(a.Direction)
	default:
		err = fmt.Errorf("unknown action %v", a.Kind)
	}

	var params map[string]interface{}
	if a.Kind == ActionMoveOnce {
		params = map[string]interface{}{"direction": a.Direction.String(), "distanceCm": c.cfg.Movement.DistanceCm}
	}
	c.audit(ctx, a.Kind.String(), params, err)
	return err
}

// OnHoldStart starts a continuous hold.
func (c *Controller) OnHoldStart(ctx context.Context, d movement.Direction) error {
	err := c.HoldStart(d)
	c.audit(ctx, "holdStart", map[string]interface{}{"direction": d.String()}, err)
	return err
}

// OnHoldEnd releases a continuous hold.
func (c *Controller) OnHoldEnd(ctx context.Context, d movement.Direction) error {
	err := c.HoldEnd(d)
	c.audit(ctx, "holdEnd", map[string]interface{}{"direction": d.String()}, err)
	return err
}

// OnQuit begins shutdown in the background. Wait on Done for completion.
func (c *Controller) OnQuit(ctx context.Context) {
	c.audit(ctx, "quit", nil, nil)
	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), c.cfg.Session.ShutdownTimeout())
		defer cancel()
		if _, err := c.Shutdown(sctx); err != nil {
			log.Printf("Session: shutdown finished with error: %v", err)
		}
	}()
}

// Shutdown stops the telemetry cycle and every hold, attempts a land, flushes
// the command log through the sink, closes the channel and terminates.
// The land attempt and termination always happen; the returned error is the
// flush failure, if any. Concurrent and repeated calls wait for the first.
func (c *Controller) Shutdown(ctx context.Context) (Result, error) {
	c.shutdownOnce.Do(func() {
		c.shutdown(ctx)
	})

	select {
	case <-c.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result, c.resultErr
}

func (c *Controller) shutdown(ctx context.Context) {
	c.mu.Lock()
	c.shuttingDown = true
	c.state = ShuttingDown
	pollDone := c.pollDone
	c.mu.Unlock()
	c.publishState()
	log.Printf("Session: shutting down")

	c.poller.Stop()
	if pollDone != nil {
		select {
		case <-pollDone:
		case <-ctx.Done():
			log.Printf("Session: telemetry cycle still running at shutdown")
		}
	}

	c.moves.StopAll()
	if err := c.moves.Wait(ctx); err != nil {
		log.Printf("Session: holds did not stop in time: %v", err)
	}

	var result Result

	// the land attempt ignores ctx so an expired deadline cannot skip it
	landCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Session.LandWait())
	result.LandReply, result.LandErr = c.channel.QueryAndWait(landCtx, "land", c.cfg.Session.LandWait())
	cancel()
	if result.LandErr != nil {
		log.Printf("Session: land during shutdown: %v", result.LandErr)
	}

	c.mu.Lock()
	c.flying = false
	c.mu.Unlock()

	lines := c.channel.Lines()
	result.Entries = len(lines)
	if c.sink != nil {
		result.LogPath, result.FlushErr = c.sink.Flush(lines)
		if result.FlushErr != nil {
			log.Printf("Session: failed to flush command log: %v", result.FlushErr)
		} else {
			log.Printf("Session: command log written to %s (%d entries)", result.LogPath, result.Entries)
		}
	}

	if err := c.channel.Close(); err != nil {
		log.Printf("Session: closing transport: %v", err)
	}

	c.mu.Lock()
	c.state = Terminated
	c.result = result
	c.resultErr = result.FlushErr
	c.mu.Unlock()

	c.publishState()
	close(c.done)
}

// Done is closed once the session has terminated.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Status returns the current session view.
func (c *Controller) Status() Status {
	c.mu.RLock()
	s := Status{
		State:        c.state,
		Flying:       c.flying,
		ShuttingDown: c.shuttingDown,
	}
	c.mu.RUnlock()

	s.ActiveHolds = c.moves.ActiveHolds()
	s.Telemetry = c.poller.Latest()
	s.Commands = c.channel.Stats()
	return s
}

// Log returns the command log in issue order.
func (c *Controller) Log() []command.LogEntry {
	return c.channel.Entries()
}

// Telemetry returns the latest snapshot.
func (c *Controller) Telemetry() telemetry.Snapshot {
	return c.poller.Latest()
}

func (c *Controller) checkActive() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeLocked()
}

func (c *Controller) activeLocked() error {
	switch {
	case c.shuttingDown:
		return ErrShuttingDown
	case c.state == Initializing:
		return ErrNotReady
	}
	return nil
}

func (c *Controller) audit(ctx context.Context, action string, params map[string]interface{}, err error) {
	if c.auditor == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.auditor.LogIntent(ctx, action, params, err)
}

// StatusData renders the session part of Status for events and the SSE ready payload.
func (c *Controller) StatusData() map[string]interface{} {
	s := c.Status()
	holds := make([]string, len(s.ActiveHolds))
	for i, d := range s.ActiveHolds {
		holds[i] = d.String()
	}
	return map[string]interface{}{
		"state":          s.State.String(),
		"isFlying":       s.Flying,
		"isShuttingDown": s.ShuttingDown,
		"activeHolds":    holds,
		"telemetry":      s.Telemetry.String(),
	}
}

func (c *Controller) publishState() {
	if c.publisher == nil {
		return
	}
	c.publisher.PublishEvent("session", c.StatusData())
}

func (c *Controller) publishHolds() {
	if c.publisher == nil {
		return
	}
	c.publisher.PublishEvent("holds", c.StatusData())
}
