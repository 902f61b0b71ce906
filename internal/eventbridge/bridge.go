// Package eventbridge dispatches local host events to in-process subscribers.
//
// Events are matched by exact name and delivered on a single dispatch loop:
// handlers for the same event run sequentially in registration order while
// the producer never waits for them.
package eventbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// DefaultListenerTimeout is the ceiling for subscriptions bound to a single operation.
const DefaultListenerTimeout = 5 * time.Minute

// Event is a named local event with its raw payload.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// Decode decodes the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("could not decode %q payload: %w", e.Name, err)
	}
	return nil
}

// Handler receives the dispatched events.
type Handler func(Event)

// BridgeConfig is the configuration for the event bridge.
type BridgeConfig struct {
	Clock  clock.WithDelayedExecution
	Logger log.Logger
}

func (c *BridgeConfig) defaults() error {
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "eventbridge.Bridge"})
	return nil
}

// Bridge is a local event stream keyed by event name.
type Bridge struct {
	clock  clock.WithDelayedExecution
	logger log.Logger

	mu       sync.Mutex
	handlers map[string][]*Subscription
	pending  []Event
	closed   bool

	notify chan struct{}
	done   chan struct{}
}

// NewBridge creates a new bridge and starts its dispatch loop.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b := &Bridge{
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		handlers: map[string][]*Subscription{},
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go b.loop()

	return b, nil
}

// Subscribe registers a handler for an event name.
func (b *Bridge) Subscribe(name string, h Handler) (*Subscription, error) {
	return b.subscribe(name, 0, h)
}

// SubscribeWithTimeout registers a handler that is force-unsubscribed after timeout,
// regardless of the events it received.
func (b *Bridge) SubscribeWithTimeout(name string, timeout time.Duration, h Handler) (*Subscription, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive: %w", model.ErrNotValid)
	}
	return b.subscribe(name, timeout, h)
}

func (b *Bridge) subscribe(name string, timeout time.Duration, h Handler) (*Subscription, error) {
	if name == "" {
		return nil, fmt.Errorf("event name is required: %w", model.ErrNotValid)
	}
	if h == nil {
		return nil, fmt.Errorf("handler is required: %w", model.ErrNotValid)
	}

	s := &Subscription{
		name:    name,
		handler: h,
		bridge:  b,
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("could not subscribe to %q: %w", name, model.ErrClosed)
	}
	b.handlers[name] = append(b.handlers[name], s)
	b.mu.Unlock()

	if timeout > 0 {
		s.mu.Lock()
		s.timer = b.clock.AfterFunc(timeout, func() {
			if s.release(model.ErrTimeout) {
				b.logger.Warningf("listener for %q reached the %s ceiling, unsubscribed", name, timeout)
			}
		})
		s.mu.Unlock()
	}

	return s, nil
}

// Emit publishes an event without waiting for its handlers.
func (b *Bridge) Emit(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not encode %q payload: %w", name, err)
	}

	return b.EmitRaw(Event{Name: name, Payload: data})
}

// EmitRaw publishes an already encoded event.
func (b *Bridge) EmitRaw(ev Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("could not emit %q: %w", ev.Name, model.ErrClosed)
	}
	b.pending = append(b.pending, ev)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}

	return nil
}

// HandlerCount returns the number of active handlers for an event name.
func (b *Bridge) HandlerCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[name])
}

// Close stops the dispatch loop and removes every subscription.
// Events still queued are discarded.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var subs []*Subscription
	for _, hs := range b.handlers {
		subs = append(subs, hs...)
	}
	b.pending = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.remove(model.ErrClosed)
	}
	close(b.done)
}

func (b *Bridge) loop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.notify:
		}

		for {
			b.mu.Lock()
			if b.closed || len(b.pending) == 0 {
				b.mu.Unlock()
				break
			}
			ev := b.pending[0]
			b.pending = b.pending[1:]
			subs := append([]*Subscription(nil), b.handlers[ev.Name]...)
			b.mu.Unlock()

			for _, s := range subs {
				// Handlers can unsubscribe the ones registered after them.
				if !s.Active() {
					continue
				}
				b.dispatch(s, ev)
			}
		}
	}
}

func (b *Bridge) dispatch(s *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("handler for %q panicked: %v", ev.Name, r)
		}
	}()
	s.handler(ev)
}

func (b *Bridge) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hs := b.handlers[s.name]
	for i, h := range hs {
		if h == s {
			b.handlers[s.name] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(b.handlers[s.name]) == 0 {
		delete(b.handlers, s.name)
	}
}
