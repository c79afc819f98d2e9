// Package realtime maintains one logical push connection and delivers typed contact events
// to subscribed handlers, reconnecting with linear-capped backoff after transport failures.
//
// Delivery is at-most-once: frames sent by the server while the channel is reconnecting are
// lost, so consumers reconcile with a full load after a reconnect.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
)

// State is the connection state of a Channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrReconnectExhausted is the terminal error after MaxAttempts failed reconnects.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	// ErrAlreadyStarted is returned by Connect when the channel left the idle state.
	ErrAlreadyStarted = errors.New("channel already started")
)

// Defaults for Config.
const (
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 5
)

// Conn is one established transport connection.
type Conn interface {
	// ReadMessage blocks until the next frame arrives. It returns an error once the connection
	// is closed, locally or by the peer.
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// Dialer establishes connections. A successful Dial is a completed handshake.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// Handler receives decoded events of the type it subscribed to.
type Handler func(contracts.Event)

// HandlerID identifies one subscription.
type HandlerID uint64

// StateListener observes state transitions. err is set on the transition to Closed after
// reconnects were exhausted, and carries the last transport error on Reconnecting.
type StateListener func(state State, err error)

// Config configures a Channel.
type Config struct {
	Dialer Dialer
	// BaseDelay is multiplied by the attempt number to get the backoff delay.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// MaxAttempts is the number of consecutive reconnect attempts before giving up.
	MaxAttempts int
	Logger      logger.Logger
	Metrics     *metrics.Metrics
	// Sleep waits for d or until ctx is done. Overridable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

type handlerEntry struct {
	id HandlerID
	fn Handler
}

type listenerEntry struct {
	id uint64
	fn StateListener
}

// Channel is the realtime push channel.
type Channel struct {
	cfg Config
	log logger.Logger

	// notifyMu orders state notifications.
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     State
	attempt   int
	conn      Conn
	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
	err       error
	handlers  map[contracts.MessageType][]handlerEntry
	nextID    HandlerID
	listeners []listenerEntry
	nextLis   uint64
}

// NewChannel creates an idle channel.
func NewChannel(cfg Config) *Channel {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Channel{
		cfg:      cfg,
		log:      logger.OrSilent(cfg.Logger),
		state:    StateIdle,
		done:     make(chan struct{}),
		handlers: make(map[contracts.MessageType][]handlerEntry),
	}
}

// Backoff returns min(base*attempt, max).
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base * time.Duration(attempt)
	if d > max || d/time.Duration(attempt) != base {
		return max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal error, if the channel gave up reconnecting.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the channel is closed and its connection goroutine has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Connect starts connecting in the background. It only succeeds from the idle state.
func (c *Channel) Connect(ctx context.Context) error {
	if c.cfg.Dialer == nil {
		return errors.New("realtime channel has no dialer")
	}

	c.notifyMu.Lock()
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyStarted, state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	c.state = StateConnecting
	listeners := c.listenersLocked()
	c.mu.Unlock()
	notify(listeners, StateConnecting, nil)
	c.notifyMu.Unlock()

	c.cfg.Metrics.IncStateChange(StateConnecting.String())
	go c.run(runCtx)
	return nil
}

// Disconnect closes the channel: it cancels any pending backoff, closes the connection and
// drops every handler and state listener. It is idempotent and does not wait for the
// connection goroutine; use Done for that.
func (c *Channel) Disconnect() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	cancel, conn, started := c.cancel, c.conn, c.started
	c.conn = nil
	c.handlers = make(map[contracts.MessageType][]handlerEntry)
	listeners := c.listenersLocked()
	c.listeners = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if !started {
		close(c.done)
	}

	c.log.Info("realtime channel disconnected")
	c.cfg.Metrics.IncStateChange(StateClosed.String())
	notify(listeners, StateClosed, nil)
}

// Subscribe registers h for messages of type t. Handlers of one type run in registration
// order. Subscribing on a closed channel is a no-op returning 0.
func (c *Channel) Subscribe(t contracts.MessageType, h Handler) HandlerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed || h == nil {
		return 0
	}
	c.nextID++
	c.handlers[t] = append(c.handlers[t], handlerEntry{id: c.nextID, fn: h})
	return c.nextID
}

// Unsubscribe removes exactly the handler registered under id for t.
func (c *Channel) Unsubscribe(t contracts.MessageType, id HandlerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.handlers[t]
	for i, e := range entries {
		if e.id == id {
			c.handlers[t] = append(entries[:i:i], entries[i+1:]...)
			if len(c.handlers[t]) == 0 {
				delete(c.handlers, t)
			}
			return true
		}
	}
	return false
}

// HandlerCount returns the number of registered handlers across all types.
func (c *Channel) HandlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, entries := range c.handlers {
		n += len(entries)
	}
	return n
}

// OnStateChange registers a state listener. Listeners run synchronously on the goroutine
// causing the transition and must not call Connect or Disconnect.
func (c *Channel) OnStateChange(fn StateListener) (remove func()) {
	c.mu.Lock()
	c.nextLis++
	id := c.nextLis
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Send marshals msg as JSON and writes it. Outbound traffic is best-effort: it reports false,
// without error, when the channel is not connected or the write fails.
func (c *Channel) Send(ctx context.Context, msg any) bool {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != StateConnected || conn == nil {
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Warn("dropping unencodable outbound message", "error", err)
		return false
	}
	if err := conn.WriteMessage(ctx, data); err != nil {
		c.log.Debug("outbound write failed", "error", err)
		return false
	}
	return true
}

func (c *Channel) listenersLocked() []listenerEntry {
	return append([]listenerEntry(nil), c.listeners...)
}

func notify(listeners []listenerEntry, state State, err error) {
	for _, l := range listeners {
		l.fn(state, err)
	}
}

// transition moves to state unless the channel was closed meanwhile.
func (c *Channel) transition(state State, err error, conn Conn) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return false
	}
	c.state = state
	c.conn = conn
	if state == StateClosed {
		c.err = err
		c.handlers = make(map[contracts.MessageType][]handlerEntry)
	}
	listeners := c.listenersLocked()
	if state == StateClosed {
		c.listeners = nil
	}
	c.mu.Unlock()

	c.cfg.Metrics.IncStateChange(state.String())
	notify(listeners, state, err)
	return true
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		conn, err := c.cfg.Dialer.Dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}

		if err == nil {
			attempt = 0
			c.mu.Lock()
			c.attempt = 0
			c.mu.Unlock()
			if !c.transition(StateConnected, nil, conn) {
				_ = conn.Close()
				return
			}
			c.log.Info("realtime channel connected")

			err = c.readLoop(ctx, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("realtime connection lost", "error", err)
		} else {
			c.log.Warn("realtime handshake failed", "error", err)
		}

		attempt++
		c.mu.Lock()
		c.attempt = attempt
		c.mu.Unlock()

		if attempt > c.cfg.MaxAttempts {
			terminal := fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, c.cfg.MaxAttempts, err)
			c.log.Error("realtime channel giving up", "attempts", c.cfg.MaxAttempts, "error", err)
			c.transition(StateClosed, terminal, nil)
			return
		}

		delay := Backoff(c.cfg.BaseDelay, c.cfg.MaxDelay, attempt)
		if !c.transition(StateReconnecting, err, nil) {
			return
		}
		c.cfg.Metrics.IncReconnect()
		c.log.Info("reconnecting", "attempt", attempt, "delay", delay)

		if err := c.cfg.Sleep(ctx, delay); err != nil {
			return
		}
		if !c.transition(StateConnecting, nil, nil) {
			return
		}
	}
}

// Attempt returns the current reconnect attempt, 0 while connected.
func (c *Channel) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

func (c *Channel) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.ReadMessage(ctx)
		if err != nil {
			return err
		}
		c.dispatch(data)
	}
}

// dispatch decodes one frame and runs the handlers registered for its type, in order.
func (c *Channel) dispatch(data []byte) {
	ev, err := contracts.ParseEnvelope(data)
	switch {
	case errors.Is(err, contracts.ErrUnknownMessageType):
		c.cfg.Metrics.IncMessage("unknown")
		c.log.Debug("ignoring unknown message type", "error", err)
		return
	case err != nil:
		c.cfg.Metrics.IncMessage("malformed")
		c.log.Debug("ignoring malformed message", "error", err)
		return
	}

	t := ev.MessageType()
	c.cfg.Metrics.IncMessage(string(t))

	c.mu.Lock()
	entries := append([]handlerEntry(nil), c.handlers[t]...)
	c.mu.Unlock()

	for _, e := range entries {
		e.fn(ev)
	}
}
