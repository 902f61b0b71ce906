package instanceadd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
)

// ServiceConfig is the configuration for the instance add service.
type ServiceConfig struct {
	Repository storage.InstanceRepository
	Now        func() time.Time
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.InstanceAdd"})
	return nil
}

// Service registers new instances.
type Service struct {
	repo   storage.InstanceRepository
	now    func() time.Time
	logger log.Logger
}

// NewService creates a new instance add service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		now:    cfg.Now,
		logger: cfg.Logger,
	}, nil
}

// Request contains the parameters for adding an instance.
type Request struct {
	Name      string
	ModpackID string
	// Version is the pinned modpack version, empty follows the latest one.
	Version string
	Dir     string
	// CreateDir creates the instance directory if missing.
	CreateDir bool
}

// Run adds a new instance.
func (s *Service) Run(ctx context.Context, req Request) (*model.Instance, error) {
	version := req.Version
	if version == "" {
		version = model.LatestVersionMarker
	}

	now := s.now().UTC()
	inst := model.Instance{
		ID:               ulid.Make().String(),
		Name:             req.Name,
		ModpackID:        req.ModpackID,
		ModpackVersionID: version,
		Dir:              req.Dir,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instance: %w", err)
	}

	_, err := s.repo.GetInstanceByName(ctx, req.Name)
	if err == nil {
		return nil, fmt.Errorf("instance with name %q already exists: %w", req.Name, model.ErrAlreadyExists)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not check name uniqueness: %w", err)
	}

	if req.CreateDir {
		if err := os.MkdirAll(inst.Dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create instance directory: %w", err)
		}
	}

	if err := s.repo.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("could not store instance: %w", err)
	}

	s.logger.Infof("Instance %s (%s) added for modpack %s@%s", inst.Name, inst.ID, inst.ModpackID, inst.ModpackVersionID)
	return &inst, nil
}
