package processing

import (
	"fmt"
	"sync"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/realtime"
)

// MessageSource is where the processing messages come from.
type MessageSource interface {
	On(t model.MessageType, h realtime.Handler) (*realtime.Subscription, error)
}

// WatcherConfig is the configuration for the processing watcher.
type WatcherConfig struct {
	Source  MessageSource
	Machine *Machine
	// OnChange receives every applied state.
	OnChange func(key model.WatchKey, state model.ProcessingState)
	Logger   log.Logger
}

func (c *WatcherConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("source is required")
	}
	if c.Machine == nil {
		return fmt.Errorf("machine is required")
	}
	if c.OnChange == nil {
		c.OnChange = func(model.WatchKey, model.ProcessingState) {}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "processing.Watcher"})
	return nil
}

// Watcher feeds the modpack processing messages of a source into a machine.
type Watcher struct {
	source   MessageSource
	machine  *Machine
	onChange func(model.WatchKey, model.ProcessingState)
	logger   log.Logger

	mu  sync.Mutex
	sub *realtime.Subscription
}

// NewWatcher creates a new watcher, it doesn't listen until Start is called.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Watcher{
		source:   cfg.Source,
		machine:  cfg.Machine,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
	}, nil
}

// Start watches the entity, restarting on an already started watcher only changes the key.
func (w *Watcher) Start(key model.WatchKey) error {
	w.machine.Watch(key)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sub != nil {
		return nil
	}

	sub, err := w.source.On(model.MessageTypeModpackProcessing, w.handle)
	if err != nil {
		return fmt.Errorf("could not listen processing messages: %w", err)
	}
	w.sub = sub

	return nil
}

// Stop stops listening. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (w *Watcher) handle(env model.Envelope) {
	msg, err := model.ParseProcessingMessage(env.Data)
	if err != nil {
		w.logger.Warningf("discarding invalid processing message: %s", err)
		return
	}

	state, ok := w.machine.Apply(msg)
	if !ok {
		return
	}
	w.onChange(msg.Key(), state)
}
