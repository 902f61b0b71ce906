// Package realtime implements a reconnecting network channel that multiplexes
// named messages to independently registered listeners.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

const (
	// DefaultRetryInterval is the fixed wait between reconnection attempts.
	DefaultRetryInterval = 3 * time.Second
	// DefaultMaxAttempts is the number of consecutive failed attempts before giving up.
	DefaultMaxAttempts = 5
)

// State is the connection state of a channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateFailed is terminal until a manual Connect.
	StateFailed State = "failed"
)

// Conn is a single physical duplex connection.
type Conn interface {
	// ReadMessage blocks until a message is received or the connection is closed.
	ReadMessage(ctx context.Context) (model.Envelope, error)
	WriteMessage(ctx context.Context, env model.Envelope) error
	Close() error
}

// Dialer opens physical connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc is a helper to use functions as Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// Handler receives the messages of one type.
type Handler func(env model.Envelope)

// StateHandler receives connection state changes, err is set on drops and failures.
type StateHandler func(state State, err error)

// ChannelConfig is the configuration for the realtime channel.
type ChannelConfig struct {
	Dialer        Dialer
	RetryInterval time.Duration
	MaxAttempts   int
	Clock         clock.Clock
	Logger        log.Logger
}

func (c *ChannelConfig) defaults() error {
	if c.Dialer == nil {
		return fmt.Errorf("dialer is required")
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "realtime.Channel"})
	return nil
}

// Channel is a single logical connection shared by many listeners.
// Messages are delivered at most once, nothing is buffered while disconnected.
type Channel struct {
	dialer        Dialer
	retryInterval time.Duration
	maxAttempts   int
	clock         clock.Clock
	logger        log.Logger

	mu            sync.Mutex
	state         State
	attempts      int
	connErr       error
	conn          Conn
	cancel        context.CancelFunc
	closed        bool
	handlers      map[model.MessageType][]*Subscription
	stateHandlers []*Subscription
}

// NewChannel creates a new disconnected channel.
func NewChannel(cfg ChannelConfig) (*Channel, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Channel{
		dialer:        cfg.Dialer,
		retryInterval: cfg.RetryInterval,
		maxAttempts:   cfg.MaxAttempts,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		state:         StateDisconnected,
		handlers:      map[model.MessageType][]*Subscription{},
	}, nil
}

// On registers a handler for a message type.
func (c *Channel) On(t model.MessageType, h Handler) (*Subscription, error) {
	if t == "" {
		return nil, fmt.Errorf("message type is required: %w", model.ErrNotValid)
	}
	if h == nil {
		return nil, fmt.Errorf("handler is required: %w", model.ErrNotValid)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("could not listen %q: %w", t, model.ErrClosed)
	}

	s := &Subscription{handler: h}
	s.remove = func() { c.removeHandler(t, s) }
	c.handlers[t] = append(c.handlers[t], s)

	return s, nil
}

// OnStateChange registers a handler for connection state changes.
func (c *Channel) OnStateChange(h StateHandler) (*Subscription, error) {
	if h == nil {
		return nil, fmt.Errorf("handler is required: %w", model.ErrNotValid)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("could not listen state changes: %w", model.ErrClosed)
	}

	s := &Subscription{stateHandler: h}
	s.remove = func() { c.removeStateHandler(s) }
	c.stateHandlers = append(c.stateHandlers, s)

	return s, nil
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionError returns the terminal error once reconnection gave up, nil otherwise.
func (c *Channel) ConnectionError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connErr
}

// Connect dials the server. It resets the attempt counter and any previous
// connection. If the dial fails the channel keeps retrying in the background
// and the dial error is returned.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("could not connect: %w", model.ErrClosed)
	}
	if c.cancel != nil {
		c.cancel()
	}
	oldConn := c.conn
	c.conn = nil
	c.attempts = 0
	c.connErr = nil
	// The session outlives the Connect call.
	sessCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	if oldConn != nil {
		_ = oldConn.Close()
	}

	err := c.dial(ctx, sessCtx)
	if err == nil {
		return nil
	}
	if sessCtx.Err() != nil {
		return fmt.Errorf("could not connect: %w", err)
	}

	if c.recordFailure(sessCtx, err) {
		go c.reconnect(sessCtx)
	}
	return fmt.Errorf("could not connect: %w", err)
}

// Send writes a message on the current connection. Messages are not buffered
// while disconnected.
func (c *Channel) Send(ctx context.Context, t model.MessageType, payload any) error {
	env, err := model.NewEnvelope(t, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if conn == nil || state != StateConnected {
		return fmt.Errorf("could not send %q: channel is %s", t, state)
	}
	if err := conn.WriteMessage(ctx, env); err != nil {
		return fmt.Errorf("could not send %q: %w", t, err)
	}

	return nil
}

// Close disconnects and removes every listener.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.handlers = map[model.MessageType][]*Subscription{}
	c.stateHandlers = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// dial runs a single connection attempt bound to the session context.
func (c *Channel) dial(ctx, sessCtx context.Context) error {
	c.setState(sessCtx, StateConnecting, nil)

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessCtx, cancel)
	defer stop()

	conn, err := c.dialer.Dial(dialCtx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if sessCtx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return sessCtx.Err()
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.setState(sessCtx, StateConnected, nil)
	c.logger.Debugf("realtime channel connected")

	go c.readLoop(sessCtx, conn)
	return nil
}

func (c *Channel) readLoop(sessCtx context.Context, conn Conn) {
	connCtx, cancel := context.WithCancel(sessCtx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() { _ = conn.Close() })
	defer stop()

	for {
		env, err := conn.ReadMessage(connCtx)
		if err != nil {
			if sessCtx.Err() != nil {
				return
			}
			c.handleDrop(sessCtx, conn, err)
			return
		}
		c.dispatch(env)
	}
}

func (c *Channel) handleDrop(sessCtx context.Context, conn Conn, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()

	c.logger.Warningf("realtime connection dropped: %s", err)
	c.setState(sessCtx, StateDisconnected, err)
	go c.reconnect(sessCtx)
}

// reconnect retries at a fixed interval until connected, the session ends or
// the attempts are exhausted.
func (c *Channel) reconnect(sessCtx context.Context) {
	for {
		select {
		case <-sessCtx.Done():
			return
		case <-c.clock.After(c.retryInterval):
		}

		err := c.dial(sessCtx, sessCtx)
		if err == nil {
			return
		}
		if sessCtx.Err() != nil {
			return
		}
		if !c.recordFailure(sessCtx, err) {
			return
		}
	}
}

// recordFailure counts a failed attempt, returns false when the channel gave up.
func (c *Channel) recordFailure(sessCtx context.Context, err error) bool {
	c.mu.Lock()
	if sessCtx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	c.attempts++
	attempts := c.attempts
	c.mu.Unlock()

	if attempts < c.maxAttempts {
		c.logger.Warningf("realtime connection attempt %d/%d failed: %s", attempts, c.maxAttempts, err)
		c.setState(sessCtx, StateDisconnected, err)
		return true
	}

	connErr := fmt.Errorf("%w after %d attempts: %w", model.ErrConnectionExhausted, attempts, err)
	c.mu.Lock()
	c.connErr = connErr
	c.mu.Unlock()

	c.logger.Errorf("realtime connection failed: %s", connErr)
	c.setState(sessCtx, StateFailed, connErr)
	return false
}

func (c *Channel) setState(sessCtx context.Context, state State, err error) {
	c.mu.Lock()
	// A replaced session must not override the state of the current one.
	if c.closed || sessCtx.Err() != nil {
		c.mu.Unlock()
		return
	}
	changed := c.state != state
	c.state = state
	subs := append([]*Subscription(nil), c.stateHandlers...)
	c.mu.Unlock()

	if !changed && err == nil {
		return
	}
	for _, s := range subs {
		if s.Active() {
			s.stateHandler(state, err)
		}
	}
}

func (c *Channel) dispatch(env model.Envelope) {
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.handlers[env.Type]...)
	c.mu.Unlock()

	if len(subs) == 0 {
		c.logger.Debugf("no listeners for %q message", env.Type)
		return
	}

	for _, s := range subs {
		if !s.Active() {
			continue
		}
		c.safeCall(env, s.handler)
	}
}

func (c *Channel) safeCall(env model.Envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("handler for %q panicked: %v", env.Type, r)
		}
	}()
	h(env)
}

func (c *Channel) removeHandler(t model.MessageType, s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = removeSub(c.handlers[t], s)
	if len(c.handlers[t]) == 0 {
		delete(c.handlers, t)
	}
}

func (c *Channel) removeStateHandler(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateHandlers = removeSub(c.stateHandlers, s)
}

// HandlerCount returns the number of active handlers for a message type.
func (c *Channel) HandlerCount(t model.MessageType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[t])
}

func removeSub(subs []*Subscription, s *Subscription) []*Subscription {
	for i, ss := range subs {
		if ss == s {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// IsExhausted returns true if err means the channel gave up reconnecting.
func IsExhausted(err error) bool { return errors.Is(err, model.ErrConnectionExhausted) }

// Subscription is a registered channel listener.
type Subscription struct {
	handler      Handler
	stateHandler StateHandler
	remove       func()

	mu      sync.Mutex
	removed bool
}

// NewSubscription returns a subscription that calls remove on its first Unsubscribe.
func NewSubscription(remove func()) *Subscription {
	return &Subscription{remove: remove}
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	s.removed = true
	s.mu.Unlock()

	s.remove()
}

// Active returns true while the listener is registered.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.removed
}
