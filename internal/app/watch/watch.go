package watch

import (
	"context"
	"fmt"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/processing"
)

// ServiceConfig is the configuration for the processing watch service.
type ServiceConfig struct {
	Source processing.MessageSource
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("source is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Watch"})

	return nil
}

// Service follows the server side processing of a modpack version until it ends.
type Service struct {
	source processing.MessageSource
	logger log.Logger
}

// NewService creates a new watch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source: cfg.Source,
		logger: cfg.Logger,
	}, nil
}

// Request represents the watch request parameters.
type Request struct {
	ModpackID string
	VersionID string
	// OnChange receives every state change of the watched version (optional).
	OnChange func(state model.ProcessingState)
}

// Run watches the processing of a modpack version and blocks until it completes, fails
// or the context is done. The last known state is always returned.
func (s *Service) Run(ctx context.Context, req Request) (model.ProcessingState, error) {
	key := model.WatchKey{ModpackID: req.ModpackID, VersionID: req.VersionID}
	if key.ModpackID == "" || key.VersionID == "" {
		return model.ProcessingState{}, fmt.Errorf("modpack and version are required: %w", model.ErrNotValid)
	}
	logger := s.logger.WithValues(log.Kv{"modpack-id": key.ModpackID, "version-id": key.VersionID})

	ended := make(chan model.ProcessingState, 1)
	end := func(_ model.WatchKey, state model.ProcessingState) {
		select {
		case ended <- state:
		default:
		}
	}
	machine, err := processing.NewMachine(processing.MachineConfig{
		OnCompleted: end,
		OnError:     end,
		Logger:      s.logger,
	})
	if err != nil {
		return model.ProcessingState{}, fmt.Errorf("could not create state machine: %w", err)
	}

	onChange := req.OnChange
	if onChange == nil {
		onChange = func(model.ProcessingState) {}
	}
	watcher, err := processing.NewWatcher(processing.WatcherConfig{
		Source:   s.source,
		Machine:  machine,
		OnChange: func(_ model.WatchKey, state model.ProcessingState) { onChange(state) },
		Logger:   s.logger,
	})
	if err != nil {
		return model.ProcessingState{}, fmt.Errorf("could not create watcher: %w", err)
	}

	if err := watcher.Start(key); err != nil {
		return model.ProcessingState{}, err
	}
	defer watcher.Stop()
	logger.Infof("Watching modpack processing")

	select {
	case <-ctx.Done():
		return machine.State(), ctx.Err()
	case state := <-ended:
		if state.HasError() {
			return state, fmt.Errorf("processing failed: %s: %w", state.Error, model.ErrOperationFailed)
		}
		logger.Infof("Modpack processing completed")
		return state, nil
	}
}
