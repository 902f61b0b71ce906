package eventbridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/slok/packlaunch/internal/model"
)

// Scope groups the subscriptions made by one owner so they can be torn down together.
// The owner must call Close when it ends.
type Scope struct {
	bridge *Bridge

	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewScope returns a new subscription scope on the bridge.
func (b *Bridge) NewScope() *Scope {
	return &Scope{bridge: b}
}

// Subscribe registers a handler owned by the scope.
func (s *Scope) Subscribe(name string, h Handler) (*Subscription, error) {
	return s.track(func() (*Subscription, error) { return s.bridge.Subscribe(name, h) })
}

// SubscribeWithTimeout registers a handler owned by the scope with a lifetime ceiling.
func (s *Scope) SubscribeWithTimeout(name string, timeout time.Duration, h Handler) (*Subscription, error) {
	return s.track(func() (*Subscription, error) { return s.bridge.SubscribeWithTimeout(name, timeout, h) })
}

func (s *Scope) track(subscribe func() (*Subscription, error)) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("scope: %w", model.ErrClosed)
	}

	sub, err := subscribe()
	if err != nil {
		return nil, err
	}

	// Drop released subscriptions so long lived scopes don't grow.
	active := s.subs[:0]
	for _, ss := range s.subs {
		if ss.Active() {
			active = append(active, ss)
		}
	}
	s.subs = append(active, sub)

	return sub, nil
}

// Close unsubscribes every subscription made through the scope. It is idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
