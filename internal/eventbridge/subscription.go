package eventbridge

import (
	"sync"

	"k8s.io/utils/clock"
)

// Subscription is a single registered handler. It owns its timeout timer, if any.
type Subscription struct {
	name    string
	handler Handler
	bridge  *Bridge

	mu       sync.Mutex
	timer    clock.Timer
	released bool
	reason   error
	done     chan struct{}
}

// Name returns the event name of the subscription.
func (s *Subscription) Name() string { return s.name }

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() { s.remove(nil) }

func (s *Subscription) remove(reason error) {
	s.mu.Lock()
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	s.release(reason)
}

// Active returns true while the handler is registered.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.released
}

// Done is closed when the subscription is removed, by unsubscribe, timeout or bridge close.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns why the subscription was removed: model.ErrTimeout when its ceiling
// was reached and model.ErrClosed when the bridge was closed. It is nil while the
// subscription is active or after an explicit unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// release removes the handler from the bridge, returns false if it was already released.
// It doesn't touch the timer so it can run from the timer callback itself.
func (s *Subscription) release(reason error) bool {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return false
	}
	s.released = true
	s.reason = reason
	s.mu.Unlock()

	s.bridge.remove(s)
	close(s.done)
	return true
}
