// Package processing reduces remote processing messages into the view state
// of a single watched entity.
package processing

import (
	"fmt"
	"sync"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// MachineConfig is the configuration for the processing state machine.
type MachineConfig struct {
	// OnCompleted is called once per processing run of the watched entity when it completes.
	// A progress message after a terminal one starts a new run.
	OnCompleted func(key model.WatchKey, state model.ProcessingState)
	// OnError is called once per processing run of the watched entity when it fails.
	OnError func(key model.WatchKey, state model.ProcessingState)
	Logger  log.Logger
}

func (c *MachineConfig) defaults() error {
	if c.OnCompleted == nil {
		c.OnCompleted = func(model.WatchKey, model.ProcessingState) {}
	}
	if c.OnError == nil {
		c.OnError = func(model.WatchKey, model.ProcessingState) {}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "processing.Machine"})
	return nil
}

// Machine is the processing state of the currently watched entity.
// Messages addressed to other entities are discarded.
type Machine struct {
	onCompleted func(model.WatchKey, model.ProcessingState)
	onError     func(model.WatchKey, model.ProcessingState)
	logger      log.Logger

	mu        sync.Mutex
	key       model.WatchKey
	state     model.ProcessingState
	completed bool
	failed    bool
}

// NewMachine creates a new idle state machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Machine{
		onCompleted: cfg.OnCompleted,
		onError:     cfg.OnError,
		logger:      cfg.Logger,
	}, nil
}

// Watch sets the watched entity. Changing it resets the state to idle.
func (m *Machine) Watch(key model.WatchKey) model.ProcessingState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key == m.key {
		return m.state
	}

	m.key = key
	m.state = model.ProcessingState{}
	m.completed = false
	m.failed = false
	m.logger.Debugf("watching modpack %s version %s", key.ModpackID, key.VersionID)

	return m.state
}

// Key returns the watched entity.
func (m *Machine) Key() model.WatchKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

// State returns the current state.
func (m *Machine) State() model.ProcessingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply reduces a message into the state. It returns false when the message was
// discarded because it is addressed to another entity or its type is unknown.
func (m *Machine) Apply(msg model.ProcessingMessage) (model.ProcessingState, bool) {
	m.mu.Lock()

	if msg.Key() != m.key {
		state := m.state
		m.mu.Unlock()
		return state, false
	}

	var notify func(model.WatchKey, model.ProcessingState)
	switch msg.Type {
	case model.ProcessingEventProgress:
		if m.completed || m.failed {
			m.logger.Debugf("modpack %s version %s is being processed again", m.key.ModpackID, m.key.VersionID)
		}
		m.completed = false
		m.failed = false
		m.state.IsProcessing = true
		m.state.IsCompleted = false
		m.state.Error = ""
		m.state.Percent = clampPercent(msg.Percent)
		m.state.StatusMessage = msg.Message
		if msg.Category != "" {
			m.state.Category = msg.Category
		}

	case model.ProcessingEventCompleted:
		m.state.IsProcessing = false
		m.state.IsCompleted = true
		m.state.Error = ""
		m.state.Percent = 100
		if msg.Message != "" {
			m.state.StatusMessage = msg.Message
		}
		if msg.Category != "" {
			m.state.Category = msg.Category
		}
		if !m.completed {
			m.completed = true
			notify = m.onCompleted
		}

	case model.ProcessingEventError:
		m.state.IsProcessing = false
		m.state.IsCompleted = false
		m.state.Error = errorText(msg)
		if !m.failed {
			m.failed = true
			notify = m.onError
		}

	default:
		state := m.state
		m.mu.Unlock()
		m.logger.Warningf("ignoring unknown processing message type %q", msg.Type)
		return state, false
	}

	key, state := m.key, m.state
	m.mu.Unlock()

	if notify != nil {
		notify(key, state)
	}

	return state, true
}

func errorText(msg model.ProcessingMessage) string {
	switch {
	case msg.Error != "":
		return msg.Error
	case msg.Message != "":
		return msg.Message
	}
	return "processing failed"
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
