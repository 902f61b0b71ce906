package instanceset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage"
)

// ServiceConfig is the configuration for the instance set service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.InstanceSet"})
	return nil
}

// Service changes the settings of an existing instance.
type Service struct {
	repo   storage.InstanceRepository
	now    func() time.Time
	logger log.Logger
}

// NewService creates a new instance set service.
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

// Request contains the instance changes, empty fields are left untouched.
type Request struct {
	NameOrID string
	// Name renames the instance.
	Name string
	// Version pins the instance to a modpack version, model.LatestVersionMarker follows the latest one.
	Version string
}

// Run applies the changes to the instance. The last known version is kept, the
// launch decision of the new pin uses it.
func (s *Service) Run(ctx context.Context, req Request) (*model.Instance, error) {
	if req.NameOrID == "" {
		return nil, fmt.Errorf("instance name or id is required: %w", model.ErrNotValid)
	}
	if req.Name == "" && req.Version == "" {
		return nil, fmt.Errorf("nothing to change: %w", model.ErrNotValid)
	}

	inst, err := s.repo.GetInstanceByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) {
		inst, err = s.repo.GetInstance(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("instance not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get instance: %w", err)
	}

	if req.Name != "" && req.Name != inst.Name {
		_, err := s.repo.GetInstanceByName(ctx, req.Name)
		if err == nil {
			return nil, fmt.Errorf("instance with name %q already exists: %w", req.Name, model.ErrAlreadyExists)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("could not check name uniqueness: %w", err)
		}
		inst.Name = req.Name
	}
	if req.Version != "" {
		inst.ModpackVersionID = req.Version
	}
	inst.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateInstance(ctx, *inst); err != nil {
		return nil, fmt.Errorf("could not update instance: %w", err)
	}

	s.logger.Infof("Instance %s (%s) set to modpack %s@%s", inst.Name, inst.ID, inst.ModpackID, inst.ModpackVersionID)
	return inst, nil
}
