// Package task tracks long-running operations through their task records.
//
// The Publisher is the single writer of the records of the operations it owns,
// the Tracker is a stateless correlation filter for the readers.
package task

import (
	"context"
	"time"

	"github.com/slok/packlaunch/internal/eventbridge"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/realtime"
)

// Invoker starts long-running operations on the host.
type Invoker interface {
	// Invoke issues the command and returns once the host acknowledged it.
	Invoke(ctx context.Context, command string, args model.CommandArgs) (model.CommandAck, error)
}

// Emitter publishes local events.
type Emitter interface {
	Emit(name string, payload any) error
}

// RemoteSender publishes network messages.
type RemoteSender interface {
	Send(ctx context.Context, t model.MessageType, payload any) error
}

// LocalSource is where local events are received from.
type LocalSource interface {
	SubscribeWithTimeout(name string, timeout time.Duration, h eventbridge.Handler) (*eventbridge.Subscription, error)
}

// RemoteSource is where network messages are received from.
type RemoteSource interface {
	On(t model.MessageType, h realtime.Handler) (*realtime.Subscription, error)
}
